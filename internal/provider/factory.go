package provider

import (
	"fmt"
	"log/slog"
	"net/http"
)

// ClientFactory builds the API client for one provider. header carries the
// provider's static credentials.
type ClientFactory func(baseURL string, header http.Header) (Getter, error)

// Options gathers what New needs to construct any provider.
type Options struct {
	KeywordsEverywhere KeywordsEverywhereConfig
	SerpAPI            SerpAPIConfig
	Logger             *slog.Logger
	Counter            Counter
}

// New constructs the provider registered under name.
func New(name string, opts Options, newClient ClientFactory) (Provider, error) {
	switch name {
	case NameKeywordsEverywhere:
		cfg := opts.KeywordsEverywhere
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, name)
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = KeywordsEverywhereBaseURL
		}
		cfg.Logger, cfg.Counter = opts.Logger, opts.Counter
		header := http.Header{}
		header.Set("Authorization", "Bearer "+cfg.APIKey)
		client, err := newClient(cfg.BaseURL, header)
		if err != nil {
			return nil, fmt.Errorf("%s client: %w", name, err)
		}
		return NewKeywordsEverywhere(client, cfg), nil

	case NameSerpAPI:
		cfg := opts.SerpAPI
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, name)
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = SerpAPIBaseURL
		}
		cfg.Logger, cfg.Counter = opts.Logger, opts.Counter
		client, err := newClient(cfg.BaseURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%s client: %w", name, err)
		}
		return NewSerpAPI(client, cfg), nil

	case NameDemo:
		return NewDemo(opts.Logger, opts.Counter), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// NewWithFallback builds primary and, when fallback is non-empty and
// different, wraps both in a Chain.
func NewWithFallback(primary, fallback string, opts Options, newClient ClientFactory) (Provider, error) {
	p, err := New(primary, opts, newClient)
	if err != nil {
		return nil, err
	}
	if fallback == "" || fallback == primary {
		return p, nil
	}
	f, err := New(fallback, opts, newClient)
	if err != nil {
		return nil, err
	}
	return NewChain(opts.Logger, p, f), nil
}
