package provider

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/FranksOps/furrow/internal/keyword"
)

// KeywordsEverywhereBaseURL is the production API root.
const KeywordsEverywhereBaseURL = "https://api.keywordseverywhere.com/v1"

// KeywordsEverywhereConfig configures the primary provider.
type KeywordsEverywhereConfig struct {
	APIKey     string
	BaseURL    string // default KeywordsEverywhereBaseURL
	Country    string // default "us"
	DataSource string // default "gkp"
	Logger     *slog.Logger
	Counter    Counter
}

// KeywordsEverywhere is the primary provider. It makes two calls per seed,
// one for related keywords and one for "people also ask" questions, and
// reports volume, difficulty and CPC where the API supplies them.
type KeywordsEverywhere struct {
	client  Getter
	cfg     KeywordsEverywhereConfig
	logger  *slog.Logger
	counter Counter
}

// NewKeywordsEverywhere builds the adapter around an API client whose base URL
// and bearer credential are already set.
func NewKeywordsEverywhere(client Getter, cfg KeywordsEverywhereConfig) *KeywordsEverywhere {
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	if cfg.DataSource == "" {
		cfg.DataSource = "gkp"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Counter == nil {
		cfg.Counter = nopCounter{}
	}
	return &KeywordsEverywhere{
		client:  client,
		cfg:     cfg,
		logger:  cfg.Logger.With("provider", NameKeywordsEverywhere),
		counter: cfg.Counter,
	}
}

func (k *KeywordsEverywhere) Name() string { return NameKeywordsEverywhere }

// FetchKeywordData returns related keywords followed by questions. Either
// half may be empty when its call fails.
func (k *KeywordsEverywhere) FetchKeywordData(ctx context.Context, seed string) []keyword.Record {
	related := k.fetch(ctx, seed, "/get_related_keywords", url.Values{
		"keyword":    {seed},
		"country":    {k.cfg.Country},
		"dataSource": {k.cfg.DataSource},
	}, itemFields{text: "keyword", volume: "vol", difficulty: "difficulty", cpc: "cpc"}, keyword.TypeRelated)
	k.logger.Info("found related keywords", "seed", seed, "count", len(related))

	questions := k.fetch(ctx, seed, "/get_questions", url.Values{
		"keyword": {seed},
		"country": {k.cfg.Country},
	}, itemFields{text: "question", volume: "vol", difficulty: "difficulty", cpc: "cpc"}, keyword.TypePAA)
	k.logger.Info("found paa questions", "seed", seed, "count", len(questions))

	return append(related, questions...)
}

func (k *KeywordsEverywhere) fetch(ctx context.Context, seed, endpoint string, params url.Values, fields itemFields, t keyword.Type) []keyword.Record {
	resp, ok := k.client.GetJSON(ctx, endpoint, params)
	if !ok {
		k.logger.Warn("no data returned", "seed", seed, "endpoint", endpoint)
		return []keyword.Record{}
	}

	items, present, err := section(resp, "data")
	if err != nil {
		k.logger.Warn("unusable data section", "seed", seed, "endpoint", endpoint, "err", err)
		return []keyword.Record{}
	}
	if !present {
		k.logger.Warn("response has no data section", "seed", seed, "endpoint", endpoint)
		return []keyword.Record{}
	}

	records := make([]keyword.Record, 0, len(items))
	for i, raw := range items {
		r, err := parseItem(seed, raw, fields, t, NameKeywordsEverywhere)
		if err != nil {
			k.logger.Error("skipping malformed item", "seed", seed, "endpoint", endpoint, "index", i, "err", err)
			continue
		}
		records = append(records, r)
	}
	k.counter.RecordRecords(NameKeywordsEverywhere, string(t), len(records))
	return records
}
