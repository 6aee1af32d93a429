package cluster

import (
	"fmt"
	"testing"

	"github.com/FranksOps/furrow/internal/keyword"
)

// benchmarkRecords generates n related keywords spread across the default
// buckets, with a share that matches nothing.
func benchmarkRecords(n int) []keyword.Record {
	phrases := []string{
		"%s symptoms in adults",
		"%s diagnosis criteria",
		"best %s treatment options",
		"%s management tips",
		"%s support groups near me",
		"living with %s",
		"what causes %s?",
		"%s and pregnancy",
	}
	seeds := []string{"EDS", "POTS", "MCAS", "fibromyalgia", "lupus"}

	out := make([]keyword.Record, 0, n)
	for i := 0; len(out) < n; i++ {
		seed := seeds[i%len(seeds)]
		out = append(out, keyword.Record{
			SeedKeyword:    seed,
			RelatedKeyword: fmt.Sprintf(phrases[i%len(phrases)], seed),
			Type:           keyword.TypeRelated,
		})
	}
	return out
}

func BenchmarkClassifier_Classify(b *testing.B) {
	c := New(DefaultTable())
	for _, n := range []int{100, 1000, 10000} {
		in := benchmarkRecords(n)
		b.Run(fmt.Sprintf("records=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				c.Classify(in)
			}
		})
	}
}

func BenchmarkClassifier_Assign(b *testing.B) {
	c := New(DefaultTable())
	kw := "Managing Chronic Fatigue With Ehlers-Danlos Syndrome"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Assign(kw)
	}
}

func BenchmarkNew(b *testing.B) {
	table := DefaultTable()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		New(table)
	}
}

func TestBenchmarkRecordsCoverBuckets(t *testing.T) {
	m := New(DefaultTable()).Classify(benchmarkRecords(40))
	if m.Len() != 40 {
		t.Fatalf("expected 40 keywords, got %d", m.Len())
	}
	for _, name := range []string{"symptoms", "diagnosis", "treatment", "management", "support", "journey", "resources"} {
		if len(m.Keywords[name]) == 0 {
			t.Errorf("expected keywords in %s", name)
		}
	}
}
