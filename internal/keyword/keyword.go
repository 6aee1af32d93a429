package keyword

import (
	"errors"
	"fmt"
	"sort"
)

// Type distinguishes a related-search suggestion from a "people also ask" question.
type Type string

const (
	TypeRelated Type = "related"
	TypePAA     Type = "paa"
)

// Valid reports whether t is one of the known record types.
func (t Type) Valid() bool {
	return t == TypeRelated || t == TypePAA
}

// Record is one related keyword discovered for a seed. Records are values;
// Difficulty and CPC are nil when the source does not supply them.
type Record struct {
	SeedKeyword    string   `json:"seed_keyword"`
	RelatedKeyword string   `json:"related_keyword"`
	Volume         int      `json:"volume"`
	Difficulty     *int     `json:"difficulty"`
	CPC            *float64 `json:"cpc"`
	Type           Type     `json:"keyword_type"`
	Source         string   `json:"source"`
}

// Option sets an optional metric on a Record under construction.
type Option func(*Record)

// WithDifficulty sets the source-defined competitiveness score.
func WithDifficulty(d int) Option {
	return func(r *Record) { r.Difficulty = &d }
}

// WithCPC sets the cost-per-click estimate.
func WithCPC(c float64) Option {
	return func(r *Record) { r.CPC = &c }
}

// NewRecord builds a Record. The seed must be non-empty and the type valid;
// the related keyword may be empty. Negative volumes are recorded as 0.
func NewRecord(seed, related string, volume int, t Type, source string, opts ...Option) (Record, error) {
	if seed == "" {
		return Record{}, errors.New("context: seed keyword cannot be empty")
	}
	if !t.Valid() {
		return Record{}, fmt.Errorf("context: unknown keyword type %q", t)
	}
	if volume < 0 {
		volume = 0
	}
	r := Record{
		SeedKeyword:    seed,
		RelatedKeyword: related,
		Volume:         volume,
		Type:           t,
		Source:         source,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r, nil
}

// Sort returns a copy of records ordered by seed keyword ascending, then volume
// descending. Ties keep their input order.
func Sort(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SeedKeyword != sorted[j].SeedKeyword {
			return sorted[i].SeedKeyword < sorted[j].SeedKeyword
		}
		return sorted[i].Volume > sorted[j].Volume
	})
	return sorted
}
