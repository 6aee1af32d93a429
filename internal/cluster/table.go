package cluster

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bucket is a named topical category and the substring patterns that select it.
type Bucket struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// Table is the ordered list of buckets. Earlier buckets win when a keyword
// matches patterns from more than one bucket.
type Table struct {
	Buckets []Bucket `yaml:"buckets"`
	// Default receives keywords matching no pattern.
	Default string `yaml:"default"`
}

// DefaultBucket is the bucket unmatched keywords fall into with DefaultTable.
const DefaultBucket = "resources"

// DefaultTable returns the built-in health-journey bucket table.
func DefaultTable() Table {
	return Table{
		Buckets: []Bucket{
			{Name: "diagnosis", Patterns: []string{"diagnosis", "testing", "genetic", "specialist", "doctor"}},
			{Name: "symptoms", Patterns: []string{"symptoms", "signs", "flare", "pain", "fatigue"}},
			{Name: "treatment", Patterns: []string{"treatment", "medication", "therapy", "cure"}},
			{Name: "management", Patterns: []string{"management", "coping", "tips", "strategies", "lifestyle"}},
			{Name: "support", Patterns: []string{"support", "community", "group", "help", "advocacy"}},
			{Name: "resources", Patterns: []string{"resources", "information", "guide", "blog", "website"}},
			{Name: "journey", Patterns: []string{"journey", "story", "experience", "living with", "my"}},
		},
		Default: DefaultBucket,
	}
}

// LoadTable reads a YAML bucket table from path. An empty path returns
// DefaultTable. A missing Default falls back to DefaultBucket.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("context: %w", err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("context: parse %s: %w", path, err)
	}
	if t.Default == "" {
		t.Default = DefaultBucket
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Validate checks that bucket names are unique and non-empty and that the
// default bucket is part of the table.
func (t Table) Validate() error {
	if len(t.Buckets) == 0 {
		return errors.New("context: cluster table has no buckets")
	}
	seen := make(map[string]struct{}, len(t.Buckets))
	for i, b := range t.Buckets {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			return fmt.Errorf("context: bucket %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("context: duplicate bucket %q", name)
		}
		seen[name] = struct{}{}
	}
	if _, ok := seen[t.Default]; !ok {
		return fmt.Errorf("context: default bucket %q not in table", t.Default)
	}
	return nil
}

// Names returns bucket names in declared order.
func (t Table) Names() []string {
	names := make([]string, len(t.Buckets))
	for i, b := range t.Buckets {
		names[i] = b.Name
	}
	return names
}
