package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/FranksOps/furrow/internal/provider"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"KEYWORDS_EVERYWHERE_API_KEY", "FURROW_KEYWORDS_EVERYWHERE_API_KEY",
		"SERPAPI_API_KEY", "FURROW_SERPAPI_API_KEY", "FURROW_PROVIDER",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearProviderEnv(t)

	_, err := Load(New(), "")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("KEYWORDS_EVERYWHERE_API_KEY", "ke-key")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.KeywordsEverywhere.APIKey != "ke-key" {
		t.Errorf("expected api key from environment, got %q", cfg.KeywordsEverywhere.APIKey)
	}
	if cfg.Provider != provider.NameKeywordsEverywhere {
		t.Errorf("expected default provider, got %s", cfg.Provider)
	}
	if cfg.Throttle != time.Second || cfg.HTTP.Timeout != 30*time.Second || cfg.HTTP.MaxRetries != 3 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.KeywordsEverywhere.Country != "us" || cfg.SerpAPI.Num != 100 {
		t.Errorf("unexpected provider defaults: %+v %+v", cfg.KeywordsEverywhere, cfg.SerpAPI)
	}
}

func TestLoad_PrefixedEnvAndFile(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("FURROW_PROVIDER", "serpapi")
	t.Setenv("FURROW_SERPAPI_API_KEY", "serp-key")
	t.Setenv("FURROW_THROTTLE", "250ms")

	path := filepath.Join(t.TempDir(), "furrow.yaml")
	content := "format: json\nconcurrency: 4\nhttp:\n  fingerprint: chrome\n  user_agents:\n    - agent-a\n    - agent-b\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "serpapi" || cfg.SerpAPI.APIKey != "serp-key" {
		t.Errorf("expected serpapi from environment, got %s / %q", cfg.Provider, cfg.SerpAPI.APIKey)
	}
	if cfg.Throttle != 250*time.Millisecond {
		t.Errorf("expected 250ms throttle, got %s", cfg.Throttle)
	}
	if cfg.Format != FormatJSON || cfg.Concurrency != 4 || cfg.HTTP.Fingerprint != "chrome" {
		t.Errorf("expected file values, got %+v", cfg)
	}
	if diff := cmp.Diff([]string{"agent-a", "agent-b"}, cfg.HTTP.UserAgents); diff != "" {
		t.Errorf("user agents mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Provider:   provider.NameDemo,
		Format:     FormatCSV,
		LogLevel:   "info",
		Throttle:   time.Second,
		HTTP:       HTTP{Fingerprint: "go"},
		SerpAPI:    SerpAPI{},
		OutputDir:  ".",
		HTMLReport: false,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("demo config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"unknown provider", func(c *Config) { c.Provider = "ahrefs" }, provider.ErrUnknownProvider},
		{"fallback needs key", func(c *Config) { c.Fallback = provider.NameSerpAPI }, ErrMissingAPIKey},
		{"bad format", func(c *Config) { c.Format = "xlsx" }, nil},
		{"negative throttle", func(c *Config) { c.Throttle = -time.Second }, nil},
		{"bad fingerprint", func(c *Config) { c.HTTP.Fingerprint = "netscape" }, nil},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	if err != nil || l != slog.LevelWarn {
		t.Errorf("expected warn level, got %v %v", l, err)
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Errorf("expected error for unknown level")
	}
}
