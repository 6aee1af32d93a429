package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu       sync.Mutex
	file     *os.File
	readOnly bool
}

// New creates a new NDJSON-backed storage.Backend, one record per line.
func New(filePath string) (storage.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	return &jsonBackend{
		file: f,
	}, nil
}

// Open opens an existing NDJSON file for Query only. The file is never
// created or written; Save returns storage.ErrReadOnly.
func Open(filePath string) (storage.Backend, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	return &jsonBackend{file: f, readOnly: true}, nil
}

func (b *jsonBackend) Save(ctx context.Context, records []keyword.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.readOnly {
		return storage.ErrReadOnly
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	w := bufio.NewWriter(b.file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range keyword.Sort(records) {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("context: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]keyword.Record, error) {
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

	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var all []keyword.Record
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r keyword.Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		all = append(all, r)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	return filter.Apply(all), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
