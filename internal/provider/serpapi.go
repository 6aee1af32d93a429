package provider

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/FranksOps/furrow/internal/keyword"
)

// SerpAPIBaseURL is the production search endpoint.
const SerpAPIBaseURL = "https://serpapi.com/search"

// SerpAPIConfig configures the fallback provider.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string // default SerpAPIBaseURL
	Engine  string // default "google"
	Results int    // default 100
	Logger  *slog.Logger
	Counter Counter
}

// SerpAPI reads related searches and "people also ask" boxes from a search
// results page. It has no volume metric, so every record has volume 0.
type SerpAPI struct {
	client  Getter
	cfg     SerpAPIConfig
	logger  *slog.Logger
	counter Counter
}

// NewSerpAPI builds the adapter. The API key travels as a query parameter.
func NewSerpAPI(client Getter, cfg SerpAPIConfig) *SerpAPI {
	if cfg.Engine == "" {
		cfg.Engine = "google"
	}
	if cfg.Results <= 0 {
		cfg.Results = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Counter == nil {
		cfg.Counter = nopCounter{}
	}
	return &SerpAPI{
		client:  client,
		cfg:     cfg,
		logger:  cfg.Logger.With("provider", NameSerpAPI),
		counter: cfg.Counter,
	}
}

func (s *SerpAPI) Name() string { return NameSerpAPI }

func (s *SerpAPI) FetchKeywordData(ctx context.Context, seed string) []keyword.Record {
	resp, ok := s.client.GetJSON(ctx, "", url.Values{
		"q":       {seed},
		"api_key": {s.cfg.APIKey},
		"engine":  {s.cfg.Engine},
		"num":     {strconv.Itoa(s.cfg.Results)},
	})
	if !ok {
		s.logger.Warn("no data returned", "seed", seed)
		return []keyword.Record{}
	}

	related := s.extract(seed, resp, "related_searches", "query", keyword.TypeRelated)
	questions := s.extract(seed, resp, "related_questions", "question", keyword.TypePAA)
	s.logger.Info("found keywords", "seed", seed, "related", len(related), "paa", len(questions))
	return append(related, questions...)
}

func (s *SerpAPI) extract(seed string, resp map[string]any, key, textField string, t keyword.Type) []keyword.Record {
	items, present, err := section(resp, key)
	if err != nil {
		s.logger.Warn("unusable response section", "seed", seed, "section", key, "err", err)
		return []keyword.Record{}
	}
	if !present {
		s.logger.Warn("response section missing", "seed", seed, "section", key)
		return []keyword.Record{}
	}

	records := make([]keyword.Record, 0, len(items))
	for i, raw := range items {
		r, err := parseItem(seed, raw, itemFields{text: textField}, t, NameSerpAPI)
		if err != nil {
			s.logger.Error("skipping malformed item", "seed", seed, "section", key, "index", i, "err", err)
			continue
		}
		records = append(records, r)
	}
	s.counter.RecordRecords(NameSerpAPI, string(t), len(records))
	return records
}
