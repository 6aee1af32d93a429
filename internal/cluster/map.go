package cluster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Map is the bucket name to keyword list result of a classification run.
// Names preserves table order; every bucket is present even when empty.
type Map struct {
	Names    []string
	Keywords map[string][]string
}

func newMap(names []string) Map {
	m := Map{
		Names:    append([]string(nil), names...),
		Keywords: make(map[string][]string, len(names)),
	}
	for _, n := range names {
		m.Keywords[n] = []string{}
	}
	return m
}

// Len returns the total number of keywords across buckets.
func (m Map) Len() int {
	n := 0
	for _, kws := range m.Keywords {
		n += len(kws)
	}
	return n
}

// Top returns up to n keywords from bucket ordered by length descending, the
// longest being the most specific. Equal lengths keep their bucket order.
func (m Map) Top(bucket string, n int) []string {
	kws := append([]string(nil), m.Keywords[bucket]...)
	sort.SliceStable(kws, func(i, j int) bool {
		return len(kws[i]) > len(kws[j])
	})
	if n >= 0 && n < len(kws) {
		kws = kws[:n]
	}
	return kws
}

// MarshalJSON encodes the map as an object whose keys follow table order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		kws := m.Keywords[name]
		if kws == nil {
			kws = []string{}
		}
		val, err := json.Marshal(kws)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object written by MarshalJSON, keeping key order.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("context: expected object, got %v", tok)
	}

	m.Names = nil
	m.Keywords = make(map[string][]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("context: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("context: expected bucket name, got %v", tok)
		}
		var kws []string
		if err := dec.Decode(&kws); err != nil {
			return fmt.Errorf("context: bucket %q: %w", name, err)
		}
		if kws == nil {
			kws = []string{}
		}
		if _, seen := m.Keywords[name]; !seen {
			m.Names = append(m.Names, name)
		}
		m.Keywords[name] = kws
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}
