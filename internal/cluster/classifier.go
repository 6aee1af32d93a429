package cluster

import (
	"slices"
	"strings"

	"github.com/FranksOps/furrow/internal/keyword"
)

// Classifier assigns keywords to buckets by first substring match in table order.
// It holds no state beyond the pre-lowercased table and is safe for concurrent use.
type Classifier struct {
	names    []string
	patterns [][]string // lowercased, parallel to names
	fallback string
}

// New builds a Classifier from t. A default bucket missing from the table is
// appended as a final bucket with no patterns, so every keyword lands in a
// bucket that Map lists.
func New(t Table) *Classifier {
	c := &Classifier{
		names:    t.Names(),
		patterns: make([][]string, len(t.Buckets)),
		fallback: t.Default,
	}
	// Pre-lowercase patterns once
	for i, b := range t.Buckets {
		lower := make([]string, len(b.Patterns))
		for j, p := range b.Patterns {
			lower[j] = strings.ToLower(p)
		}
		c.patterns[i] = lower
	}
	if c.fallback == "" {
		c.fallback = DefaultBucket
	}
	if !slices.Contains(c.names, c.fallback) {
		c.names = append(c.names, c.fallback)
		c.patterns = append(c.patterns, nil)
	}
	return c
}

// Assign returns the bucket for a single keyword.
func (c *Classifier) Assign(kw string) string {
	lower := strings.ToLower(kw)
	for i, patterns := range c.patterns {
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return c.names[i]
			}
		}
	}
	return c.fallback
}

// Classify places every record's related keyword into exactly one bucket.
// Keywords keep their input order within a bucket.
func (c *Classifier) Classify(records []keyword.Record) Map {
	m := newMap(c.names)
	for _, r := range records {
		bucket := c.Assign(r.RelatedKeyword)
		m.Keywords[bucket] = append(m.Keywords[bucket], r.RelatedKeyword)
	}
	return m
}
