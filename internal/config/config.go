// Package config loads furrow settings from flags, environment and an
// optional YAML file through viper.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FranksOps/furrow/internal/fingerprint"
	"github.com/FranksOps/furrow/internal/provider"
)

// ErrMissingAPIKey is returned when a selected provider has no credential.
var ErrMissingAPIKey = provider.ErrMissingAPIKey

// EnvPrefix prefixes every environment override, e.g. FURROW_OUTPUT_DIR.
const EnvPrefix = "FURROW"

// Output formats for keyword records.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

type KeywordsEverywhere struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Country    string `mapstructure:"country"`
	DataSource string `mapstructure:"data_source"`
}

type SerpAPI struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Engine  string `mapstructure:"engine"`
	Num     int    `mapstructure:"num"`
}

type HTTP struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	MaxRateLimitWaits int           `mapstructure:"max_rate_limit_waits"`
	MaxRetryAfter     time.Duration `mapstructure:"max_retry_after"`
	Fingerprint       string        `mapstructure:"fingerprint"`
	UserAgents        []string      `mapstructure:"user_agents"`
	ProxyFile         string        `mapstructure:"proxy_file"`
}

// Config is the full set of research run settings.
type Config struct {
	Provider           string             `mapstructure:"provider"`
	Fallback           string             `mapstructure:"fallback"`
	KeywordsEverywhere KeywordsEverywhere `mapstructure:"keywords_everywhere"`
	SerpAPI            SerpAPI            `mapstructure:"serpapi"`
	HTTP               HTTP               `mapstructure:"http"`

	SeedsFile    string        `mapstructure:"seeds_file"`
	ClustersFile string        `mapstructure:"clusters_file"`
	OutputDir    string        `mapstructure:"output_dir"`
	Format       string        `mapstructure:"format"`
	HTMLReport   bool          `mapstructure:"html_report"`
	Throttle     time.Duration `mapstructure:"throttle"`
	Concurrency  int           `mapstructure:"concurrency"`
	MetricsFile  string        `mapstructure:"metrics_file"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

// SetDefaults registers every key so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", provider.NameKeywordsEverywhere)
	v.SetDefault("fallback", "")

	v.SetDefault("keywords_everywhere.api_key", "")
	v.SetDefault("keywords_everywhere.base_url", provider.KeywordsEverywhereBaseURL)
	v.SetDefault("keywords_everywhere.country", "us")
	v.SetDefault("keywords_everywhere.data_source", "gkp")

	v.SetDefault("serpapi.api_key", "")
	v.SetDefault("serpapi.base_url", provider.SerpAPIBaseURL)
	v.SetDefault("serpapi.engine", "google")
	v.SetDefault("serpapi.num", 100)

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.max_rate_limit_waits", 10)
	v.SetDefault("http.max_retry_after", time.Hour)
	v.SetDefault("http.fingerprint", string(fingerprint.ProfileGo))
	v.SetDefault("http.user_agents", []string{})
	v.SetDefault("http.proxy_file", "")

	v.SetDefault("seeds_file", "seed_keywords.txt")
	v.SetDefault("clusters_file", "")
	v.SetDefault("output_dir", ".")
	v.SetDefault("format", FormatCSV)
	v.SetDefault("html_report", false)
	v.SetDefault("throttle", time.Second)
	v.SetDefault("concurrency", 1)
	v.SetDefault("metrics_file", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// BindEnv maps FURROW_<KEY> (dots become underscores) onto every key and
// also accepts the providers' conventional variable names.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("keywords_everywhere.api_key", EnvPrefix+"_KEYWORDS_EVERYWHERE_API_KEY", "KEYWORDS_EVERYWHERE_API_KEY")
	_ = v.BindEnv("serpapi.api_key", EnvPrefix+"_SERPAPI_API_KEY", "SERPAPI_API_KEY")
}

// Load reads the optional config file, decodes v and validates the result.
func Load(v *viper.Viper, file string) (Config, error) {
	cfg, err := Read(v, file)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that never call a provider.
func Read(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a run cannot start without.
func (c Config) Validate() error {
	for _, name := range c.Providers() {
		switch name {
		case provider.NameKeywordsEverywhere:
			if c.KeywordsEverywhere.APIKey == "" {
				return fmt.Errorf("%w: set KEYWORDS_EVERYWHERE_API_KEY for provider %s", ErrMissingAPIKey, name)
			}
		case provider.NameSerpAPI:
			if c.SerpAPI.APIKey == "" {
				return fmt.Errorf("%w: set SERPAPI_API_KEY for provider %s", ErrMissingAPIKey, name)
			}
		case provider.NameDemo:
		default:
			return fmt.Errorf("%w: %q", provider.ErrUnknownProvider, name)
		}
	}

	if c.Format != FormatCSV && c.Format != FormatJSON {
		return fmt.Errorf("unsupported format %q, want %s or %s", c.Format, FormatCSV, FormatJSON)
	}
	if c.Throttle < 0 {
		return fmt.Errorf("throttle must not be negative, got %s", c.Throttle)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if _, err := fingerprint.ParseProfile(c.HTTP.Fingerprint); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Providers lists the configured provider names, primary first.
func (c Config) Providers() []string {
	names := []string{c.Provider}
	if c.Fallback != "" && c.Fallback != c.Provider {
		names = append(names, c.Fallback)
	}
	return names
}

// ParseLevel maps debug, info, warn or error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}
