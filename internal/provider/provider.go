// Package provider translates seed keywords into keyword records using
// external research APIs. Every adapter degrades to partial or empty results
// instead of failing, so one bad seed or item never stops a run.
package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/pkg/httpclient"
)

// Names accepted by the CLI's --provider and --fallback flags.
const (
	NameKeywordsEverywhere = "keywords_everywhere"
	NameSerpAPI            = "serpapi"
	NameDemo               = "demo"
)

// ErrUnknownProvider is returned when a provider name is not recognised.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrMissingAPIKey is returned when a keyed provider is built without a
// credential.
var ErrMissingAPIKey = errors.New("missing api key")

// Provider fetches related keywords and questions for one seed.
type Provider interface {
	Name() string
	FetchKeywordData(ctx context.Context, seed string) []keyword.Record
}

// Getter is the slice of httpclient.Client the adapters need.
type Getter interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values) (httpclient.Response, bool)
}

// Counter receives per-provider record counts.
type Counter interface {
	RecordRecords(provider, keywordType string, n int)
}

type nopCounter struct{}

func (nopCounter) RecordRecords(string, string, int) {}

// Chain asks each provider in turn and returns the first non-empty result.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain builds a Chain. Nil providers are skipped.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	kept := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Chain{providers: kept, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

func (c *Chain) FetchKeywordData(ctx context.Context, seed string) []keyword.Record {
	for i, p := range c.providers {
		records := p.FetchKeywordData(ctx, seed)
		if len(records) > 0 {
			return records
		}
		if i+1 < len(c.providers) && ctx.Err() == nil {
			c.logger.Warn("no data from provider, trying fallback",
				"seed", seed, "provider", p.Name(), "fallback", c.providers[i+1].Name())
		}
	}
	return nil
}
