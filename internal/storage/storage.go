package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/FranksOps/furrow/internal/cluster"
	"github.com/FranksOps/furrow/internal/keyword"
)

// ErrReadOnly is returned by Save on a backend opened for reading.
var ErrReadOnly = errors.New("backend is read-only")

// Columns is the tabular layout shared by every flat-file backend.
var Columns = []string{
	"seed_keyword",
	"related_keyword",
	"volume",
	"difficulty",
	"cpc",
	"keyword_type",
	"source",
}

// Filter allows querying for specific keyword records. Zero fields match
// everything.
type Filter struct {
	SeedKeyword string
	Type        keyword.Type
	Source      string
	MinVolume   int
	Limit       int
	Offset      int
}

// Match reports whether r passes every field filter. Limit and Offset are
// applied by Apply.
func (f Filter) Match(r keyword.Record) bool {
	if f.SeedKeyword != "" && r.SeedKeyword != f.SeedKeyword {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	return r.Volume >= f.MinVolume
}

// Apply filters records and then applies Offset and Limit.
func (f Filter) Apply(records []keyword.Record) []keyword.Record {
	out := []keyword.Record{}
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []keyword.Record{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

// Backend defines the interface for storing and querying keyword records.
// Save writes a batch ordered by keyword.Sort.
type Backend interface {
	Save(ctx context.Context, records []keyword.Record) error
	Query(ctx context.Context, filter Filter) ([]keyword.Record, error)
	Close() error
}

// WriteClusters encodes m as indented JSON, one key per bucket in table order.
func WriteClusters(w io.Writer, m cluster.Map) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

// WriteClustersFile writes the cluster map to path, replacing any existing file.
func WriteClustersFile(path string, m cluster.Map) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	if err := WriteClusters(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
