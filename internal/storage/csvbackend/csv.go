package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu       sync.Mutex
	file     *os.File
	readOnly bool
}

// New creates a new CSV-backed storage.Backend. An existing file is appended
// to and can be queried, including files written by earlier runs.
func New(filePath string) (storage.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	// Check if file is empty to write headers
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(storage.Columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("context: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("context: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

// Open opens an existing CSV file for Query only. The file is never
// created or written; Save returns storage.ErrReadOnly.
func Open(filePath string) (storage.Backend, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	return &csvBackend{file: f, readOnly: true}, nil
}

func (b *csvBackend) Save(ctx context.Context, records []keyword.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.readOnly {
		return storage.ErrReadOnly
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Ensure we're at the end of the file for appending (just in case)
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	w := csv.NewWriter(b.file)
	for _, r := range keyword.Sort(records) {
		if err := w.Write(toRow(r)); err != nil {
			return fmt.Errorf("context: %w", err)
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func toRow(r keyword.Record) []string {
	difficulty := ""
	if r.Difficulty != nil {
		difficulty = strconv.Itoa(*r.Difficulty)
	}
	cpc := ""
	if r.CPC != nil {
		cpc = strconv.FormatFloat(*r.CPC, 'f', -1, 64)
	}
	return []string{
		r.SeedKeyword,
		r.RelatedKeyword,
		strconv.Itoa(r.Volume),
		difficulty,
		cpc,
		string(r.Type),
		r.Source,
	}
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]keyword.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Seek to the beginning of the file to read all entries
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return []keyword.Record{}, nil
		}
		return nil, fmt.Errorf("context: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var all []keyword.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		rec, ok := fromRow(row, idx)
		if !ok {
			continue // skip malformed rows
		}
		all = append(all, rec)
	}

	return filter.Apply(all), nil
}

// columnIndex maps each known column to its position in header, so files
// with reordered or extra columns still load.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{"seed_keyword", "related_keyword"} {
		if _, ok := idx[col]; !ok {
			return nil, errors.New("context: csv is missing column " + col)
		}
	}
	return idx, nil
}

func fromRow(row []string, idx map[string]int) (keyword.Record, bool) {
	cell := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	volume := 0
	if v := cell("volume"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return keyword.Record{}, false
		}
		volume = int(f)
	}

	t := keyword.Type(cell("keyword_type"))
	if t == "" {
		t = keyword.TypeRelated
	}

	var opts []keyword.Option
	if v := cell("difficulty"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts = append(opts, keyword.WithDifficulty(int(f)))
		}
	}
	if v := cell("cpc"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts = append(opts, keyword.WithCPC(f))
		}
	}

	rec, err := keyword.NewRecord(cell("seed_keyword"), cell("related_keyword"), volume, t, cell("source"), opts...)
	if err != nil {
		return keyword.Record{}, false
	}
	return rec, true
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
