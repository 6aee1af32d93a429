package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/FranksOps/furrow/internal/cluster"
	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/internal/pipeline"
)

const (
	topKeywords        = 10
	topClusterKeywords = 5
)

// ClusterSummary is one bucket of the cluster analysis.
type ClusterSummary struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Top   []string `json:"top"`
}

// Summary contains aggregated metrics about a research run.
type Summary struct {
	RunID         string           `json:"run_id,omitempty"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
	Duration      time.Duration    `json:"duration"`
	TotalKeywords int              `json:"total_keywords"`
	UniqueSeeds   int              `json:"unique_seeds"`
	AverageVolume float64          `json:"average_volume"`
	Over1000      int              `json:"volume_over_1000"`
	Over10000     int              `json:"volume_over_10000"`
	ByType        map[string]int   `json:"by_type"`
	BySource      map[string]int   `json:"by_source"`
	TopKeywords   []keyword.Record `json:"top_keywords"`
	Clusters      []ClusterSummary `json:"clusters,omitempty"`
	FailedSeeds   []string         `json:"failed_seeds,omitempty"`
}

// GenerateSummary aggregates keyword records.
func GenerateSummary(records []keyword.Record) Summary {
	s := Summary{
		ByType:      make(map[string]int),
		BySource:    make(map[string]int),
		TopKeywords: []keyword.Record{},
	}

	if len(records) == 0 {
		return s
	}

	seeds := make(map[string]struct{})
	total := 0
	for _, r := range records {
		s.TotalKeywords++
		seeds[r.SeedKeyword] = struct{}{}
		total += r.Volume
		if r.Volume > 1000 {
			s.Over1000++
		}
		if r.Volume > 10000 {
			s.Over10000++
		}
		s.ByType[string(r.Type)]++
		s.BySource[r.Source]++
	}
	s.UniqueSeeds = len(seeds)
	s.AverageVolume = float64(total) / float64(len(records))

	top := append([]keyword.Record(nil), records...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Volume > top[j].Volume })
	if len(top) > topKeywords {
		top = top[:topKeywords]
	}
	s.TopKeywords = top
	return s
}

// SummarizeClusters lists every bucket with its size and most specific keywords.
func SummarizeClusters(m cluster.Map) []ClusterSummary {
	out := make([]ClusterSummary, 0, len(m.Names))
	for _, name := range m.Names {
		out = append(out, ClusterSummary{
			Name:  name,
			Count: len(m.Keywords[name]),
			Top:   m.Top(name, topClusterKeywords),
		})
	}
	return out
}

// FromResult summarizes a finished pipeline run.
func FromResult(res pipeline.Result) Summary {
	s := GenerateSummary(res.Records)
	s.RunID = res.RunID
	s.StartTime = res.StartedAt
	s.EndTime = res.FinishedAt
	s.Duration = res.FinishedAt.Sub(res.StartedAt)
	s.Clusters = SummarizeClusters(res.Clusters)
	s.FailedSeeds = res.Failed
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

var funcs = template.FuncMap{
	"title":  title,
	"volume": formatVolume,
	"opt":    optional,
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatVolume renders n with thousands separators.
func formatVolume(n int) string {
	s := fmt.Sprint(n)
	if n < 0 {
		return s
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func optional(r keyword.Record) string {
	d, c := "-", "-"
	if r.Difficulty != nil {
		d = fmt.Sprint(*r.Difficulty)
	}
	if r.CPC != nil {
		c = fmt.Sprintf("$%.2f", *r.CPC)
	}
	return fmt.Sprintf("Difficulty: %s, CPC: %s", d, c)
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Keyword Research Summary
------------------------
{{- if .RunID}}
Run:                        {{.RunID}}
Duration:                   {{.Duration}}
{{- end}}
Total keywords analyzed:    {{.TotalKeywords}}
Unique seed keywords:       {{.UniqueSeeds}}
Average search volume:      {{printf "%.0f" .AverageVolume}}
Keywords with volume > 1000:  {{.Over1000}}
Keywords with volume > 10000: {{.Over10000}}

By type:
{{- range $t, $n := .ByType}}
  {{$t}}: {{$n}}
{{- else}}
  None
{{- end}}

By source:
{{- range $src, $n := .BySource}}
  {{$src}}: {{$n}}
{{- else}}
  None
{{- end}}

Top keywords by search volume:
{{- range .TopKeywords}}
  - {{.RelatedKeyword}} - {{volume .Volume}} searches/month ({{opt .}})
{{- else}}
  None
{{- end}}
{{- if .Clusters}}

Keyword cluster analysis:
{{- range .Clusters}}

{{title .Name}} ({{.Count}} keywords):
{{- range .Top}}
  - {{.}}
{{- end}}
{{- end}}
{{- end}}
{{- if .FailedSeeds}}

Failed seeds:
{{- range .FailedSeeds}}
  - {{.}}
{{- end}}
{{- end}}
`

	t, err := template.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Keyword Research Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Keyword Research Report</h1>
  {{- if .RunID}}
  <p><strong>Run:</strong> {{.RunID}}, {{.StartTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>
  {{- end}}

  <div class="stat-card">
    <div>Keywords</div>
    <div class="stat-val">{{.TotalKeywords}}</div>
  </div>
  <div class="stat-card">
    <div>Seeds</div>
    <div class="stat-val">{{.UniqueSeeds}}</div>
  </div>
  <div class="stat-card">
    <div>Average Volume</div>
    <div class="stat-val">{{printf "%.0f" .AverageVolume}}</div>
  </div>
  <div class="stat-card">
    <div>Volume &gt; 1000</div>
    <div class="stat-val">{{.Over1000}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Seeds</div>
    <div class="stat-val" style="color: {{if .FailedSeeds}}red{{else}}green{{end}};">{{len .FailedSeeds}}</div>
  </div>

  <h3>Top Keywords</h3>
  <table>
    <tr><th>Keyword</th><th>Seed</th><th>Volume</th><th>Type</th><th>Source</th></tr>
    {{- range .TopKeywords}}
    <tr><td>{{.RelatedKeyword}}</td><td>{{.SeedKeyword}}</td><td>{{volume .Volume}}</td><td>{{.Type}}</td><td>{{.Source}}</td></tr>
    {{- else}}
    <tr><td colspan="5">None</td></tr>
    {{- end}}
  </table>

  <h3>Clusters</h3>
  <table>
    <tr><th>Cluster</th><th>Count</th><th>Most Specific</th></tr>
    {{- range .Clusters}}
    <tr><td>{{title .Name}}</td><td>{{.Count}}</td><td>{{range $i, $k := .Top}}{{if $i}}; {{end}}{{$k}}{{end}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Funcs(htmltemplate.FuncMap(funcs)).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}
