package cluster

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/google/go-cmp/cmp"
)

func records(kws ...string) []keyword.Record {
	out := make([]keyword.Record, len(kws))
	for i, kw := range kws {
		out[i] = keyword.Record{SeedKeyword: "seed", RelatedKeyword: kw, Type: keyword.TypeRelated}
	}
	return out
}

func TestClassifier_Assign(t *testing.T) {
	c := New(DefaultTable())

	tests := []struct {
		kw   string
		want string
	}{
		{"EDS diagnosis symptoms", "diagnosis"}, // first match wins over symptoms
		{"EDS joint pain", "symptoms"},
		{"What causes EDS?", "resources"},
		{"xyz unrelated term", "resources"},
		{"MCAS Medication", "treatment"},
		{"POTS management strategies", "management"},
		{"chronic illness community", "support"},
		{"Living With chronic illness", "journey"},
		{"", "resources"},
	}

	for _, tt := range tests {
		t.Run(tt.kw, func(t *testing.T) {
			if got := c.Assign(tt.kw); got != tt.want {
				t.Errorf("Assign(%q) = %q, want %q", tt.kw, got, tt.want)
			}
		})
	}
}

func TestClassifier_ClassifyEveryRecordOnce(t *testing.T) {
	c := New(DefaultTable())
	in := records("EDS joint pain", "What causes EDS?", "EDS joint pain", "", "EDS support groups")

	m := c.Classify(in)

	if m.Len() != len(in) {
		t.Fatalf("expected %d classified keywords, got %d", len(in), m.Len())
	}
	if diff := cmp.Diff(DefaultTable().Names(), m.Names); diff != "" {
		t.Errorf("bucket order mismatch (-want +got):\n%s", diff)
	}
	// duplicates are kept, not merged
	if diff := cmp.Diff([]string{"EDS joint pain", "EDS joint pain"}, m.Keywords["symptoms"]); diff != "" {
		t.Errorf("symptoms mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"What causes EDS?", ""}, m.Keywords["resources"]); diff != "" {
		t.Errorf("resources mismatch (-want +got):\n%s", diff)
	}
	if got := m.Keywords["journey"]; got == nil || len(got) != 0 {
		t.Errorf("expected empty but present journey bucket, got %v", got)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := New(DefaultTable())
	in := records("EDS diagnosis", "MCAS flare tips", "my story", "living with EDS", "POTS guide")

	first := c.Classify(in)
	second := c.Classify(in)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("classification not deterministic (-first +second):\n%s", diff)
	}
}

func TestClassifier_UnlistedDefaultBucket(t *testing.T) {
	tables := map[string]Table{
		"default not in buckets": {
			Buckets: []Bucket{{Name: "lifestyle", Patterns: []string{"diet"}}},
			Default: "other",
		},
		"empty default": {
			Buckets: []Bucket{{Name: "lifestyle", Patterns: []string{"diet"}}},
		},
	}
	wantDefault := map[string]string{"default not in buckets": "other", "empty default": DefaultBucket}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			m := New(table).Classify(records("POTS diet", "POTS symptoms"))

			fallback := wantDefault[name]
			if diff := cmp.Diff([]string{"lifestyle", fallback}, m.Names); diff != "" {
				t.Errorf("bucket names mismatch (-want +got):\n%s", diff)
			}
			if m.Len() != 2 {
				t.Errorf("expected both keywords to be listed, got %d", m.Len())
			}

			data, err := json.Marshal(m)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded map[string][]string
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if diff := cmp.Diff([]string{"POTS symptoms"}, decoded[fallback]); diff != "" {
				t.Errorf("fallback bucket mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMap_Top(t *testing.T) {
	m := newMap([]string{"symptoms"})
	m.Keywords["symptoms"] = []string{"pain", "EDS joint pain", "fatigue", "EDS fatigue", "flare"}

	got := m.Top("symptoms", 3)
	want := []string{"EDS joint pain", "EDS fatigue", "fatigue"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Top mismatch (-want +got):\n%s", diff)
	}
	if got := m.Top("missing", 5); len(got) != 0 {
		t.Errorf("expected no keywords for unknown bucket, got %v", got)
	}
}

func TestMap_JSONKeepsOrder(t *testing.T) {
	c := New(DefaultTable())
	m := c.Classify(records("EDS diagnosis", "my story"))

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"diagnosis":["EDS diagnosis"],"symptoms":[],"treatment":[],"management":[],"support":[],"resources":[],"journey":["my story"]}`
	if string(data) != want {
		t.Errorf("unexpected JSON:\n got %s\nwant %s", data, want)
	}

	var back Map
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(m, back); diff != "" {
		t.Errorf("decoded map mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "clusters.yaml")
	err := os.WriteFile(good, []byte(`
buckets:
  - name: products
    patterns: [brace, Compression]
  - name: other
    patterns: []
default: other
`), 0644)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	tbl, err := LoadTable(good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := New(tbl)
	if got := c.Assign("EDS compression socks"); got != "products" {
		t.Errorf("expected products, got %q", got)
	}
	if got := c.Assign("anything"); got != "other" {
		t.Errorf("expected other, got %q", got)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("buckets:\n  - name: a\n  - name: a\n"), 0644)
	if _, err := LoadTable(bad); err == nil {
		t.Error("expected duplicate bucket error")
	}

	noDefault := filepath.Join(dir, "nodefault.yaml")
	_ = os.WriteFile(noDefault, []byte("buckets:\n  - name: a\n    patterns: [x]\n"), 0644)
	if _, err := LoadTable(noDefault); err == nil {
		t.Error("expected error when default bucket missing from table")
	}

	tbl, err = LoadTable("")
	if err != nil {
		t.Fatalf("unexpected error for empty path: %v", err)
	}
	if tbl.Default != DefaultBucket || len(tbl.Buckets) != 7 {
		t.Errorf("expected default table, got %+v", tbl)
	}
}

func BenchmarkClassify(b *testing.B) {
	c := New(DefaultTable())
	kws := []string{
		"EDS joint pain", "What causes EDS?", "MCAS medication", "POTS management strategies",
		"chronic illness community", "living with chronic illness", "xyz unrelated term",
	}
	in := make([]keyword.Record, 0, 1000)
	for len(in) < 1000 {
		in = append(in, records(kws...)...)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		c.Classify(in)
	}
}
