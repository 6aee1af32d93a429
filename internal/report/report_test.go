package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/furrow/internal/cluster"
	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/internal/pipeline"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func sampleRecords() []keyword.Record {
	return []keyword.Record{
		{SeedKeyword: "EDS", RelatedKeyword: "EDS symptoms", Volume: 12000, Difficulty: intPtr(45), CPC: floatPtr(2.5), Type: keyword.TypeRelated, Source: "demo_data"},
		{SeedKeyword: "EDS", RelatedKeyword: "What is EDS?", Volume: 1800, Type: keyword.TypePAA, Source: "demo_data"},
		{SeedKeyword: "POTS", RelatedKeyword: "POTS diet", Volume: 400, Type: keyword.TypeRelated, Source: "serpapi"},
		{SeedKeyword: "POTS", RelatedKeyword: "POTS <exercise>", Volume: 0, Type: keyword.TypeRelated, Source: "serpapi"},
	}
}

func TestGenerateSummary(t *testing.T) {
	summary := GenerateSummary(sampleRecords())

	if summary.TotalKeywords != 4 {
		t.Errorf("expected 4 keywords, got %d", summary.TotalKeywords)
	}
	if summary.UniqueSeeds != 2 {
		t.Errorf("expected 2 unique seeds, got %d", summary.UniqueSeeds)
	}
	if summary.AverageVolume != 3550 {
		t.Errorf("expected average volume 3550, got %v", summary.AverageVolume)
	}
	if summary.Over1000 != 2 {
		t.Errorf("expected 2 keywords over 1000, got %d", summary.Over1000)
	}
	if summary.Over10000 != 1 {
		t.Errorf("expected 1 keyword over 10000, got %d", summary.Over10000)
	}
	if summary.ByType["paa"] != 1 || summary.ByType["related"] != 3 {
		t.Errorf("unexpected type counts: %v", summary.ByType)
	}
	if summary.BySource["serpapi"] != 2 {
		t.Errorf("expected 2 serpapi records, got %d", summary.BySource["serpapi"])
	}
	if summary.TopKeywords[0].RelatedKeyword != "EDS symptoms" {
		t.Errorf("expected EDS symptoms first, got %s", summary.TopKeywords[0].RelatedKeyword)
	}
	if summary.TopKeywords[3].RelatedKeyword != "POTS <exercise>" {
		t.Errorf("expected zero volume keyword last, got %s", summary.TopKeywords[3].RelatedKeyword)
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	summary := GenerateSummary(nil)
	if summary.TotalKeywords != 0 || summary.AverageVolume != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
	if summary.TopKeywords == nil || summary.ByType == nil {
		t.Errorf("expected initialized collections")
	}
}

func TestGenerateSummary_TopTen(t *testing.T) {
	var records []keyword.Record
	for i := 0; i < 15; i++ {
		records = append(records, keyword.Record{SeedKeyword: "s", RelatedKeyword: "k", Volume: i, Type: keyword.TypeRelated})
	}
	summary := GenerateSummary(records)
	if len(summary.TopKeywords) != 10 {
		t.Fatalf("expected 10 top keywords, got %d", len(summary.TopKeywords))
	}
	if summary.TopKeywords[0].Volume != 14 || summary.TopKeywords[9].Volume != 5 {
		t.Errorf("unexpected top range: %d..%d", summary.TopKeywords[0].Volume, summary.TopKeywords[9].Volume)
	}
}

func testResult() pipeline.Result {
	records := sampleRecords()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return pipeline.Result{
		RunID:      "run-1",
		Records:    records,
		Clusters:   cluster.New(cluster.DefaultTable()).Classify(records),
		Seeds:      []string{"EDS", "POTS", "MCAS"},
		Failed:     []string{"MCAS"},
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}
}

func TestFromResult(t *testing.T) {
	summary := FromResult(testResult())
	if summary.RunID != "run-1" || summary.Duration != 3*time.Second {
		t.Errorf("unexpected run fields: %s %v", summary.RunID, summary.Duration)
	}
	if len(summary.Clusters) != 7 {
		t.Fatalf("expected 7 clusters, got %d", len(summary.Clusters))
	}
	if summary.Clusters[1].Name != "symptoms" || summary.Clusters[1].Count != 1 {
		t.Errorf("unexpected symptoms cluster: %+v", summary.Clusters[1])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, FromResult(testResult())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["total_keywords"] != float64(4) {
		t.Errorf("expected total_keywords 4, got %v", decoded["total_keywords"])
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("expected run_id, got %v", decoded["run_id"])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, FromResult(testResult())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total keywords analyzed:    4",
		"Unique seed keywords:       2",
		"Average search volume:      3550",
		"  - EDS symptoms - 12,000 searches/month (Difficulty: 45, CPC: $2.50)",
		"  - What is EDS? - 1,800 searches/month (Difficulty: -, CPC: -)",
		"Symptoms (1 keywords):",
		"Failed seeds:\n  - MCAS",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, FromResult(testResult())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "<title>Keyword Research Report</title>") {
		t.Errorf("expected html title")
	}
	if !strings.Contains(out, "POTS &lt;exercise&gt;") {
		t.Errorf("expected keyword text to be escaped")
	}
	if strings.Contains(out, "POTS <exercise>") {
		t.Errorf("raw keyword text leaked into html")
	}
}

func TestFormatVolume(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 12000: "12,000", 1234567: "1,234,567"}
	for in, want := range tests {
		if got := formatVolume(in); got != want {
			t.Errorf("formatVolume(%d) = %q, want %q", in, got, want)
		}
	}
}
