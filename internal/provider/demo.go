package provider

import (
	"context"
	"log/slog"
	"strings"

	"github.com/FranksOps/furrow/internal/keyword"
)

// SourceDemo tags records produced without any API.
const SourceDemo = "demo_data"

type demoRow struct {
	text       string
	volume     int
	difficulty int
	cpc        float64
}

var demoData = map[string][]demoRow{
	"Ehlers-Danlos Syndrome": {
		{"EDS symptoms", 12000, 45, 2.50},
		{"EDS diagnosis", 8900, 52, 3.20},
		{"hypermobile EDS", 5400, 38, 2.80},
		{"EDS treatment", 7600, 48, 2.90},
		{"EDS pain management", 3200, 35, 2.10},
		{"What is EDS?", 1800, 28, 1.80},
		{"EDS genetic testing", 2100, 42, 3.50},
		{"EDS specialist near me", 1500, 25, 2.20},
	},
	"living with EDS": {
		{"EDS daily life", 2800, 32, 1.90},
		{"EDS coping strategies", 1900, 29, 1.70},
		{"EDS lifestyle changes", 1600, 31, 1.85},
		{"EDS support groups", 1200, 22, 1.40},
		{"How to live with EDS", 900, 26, 1.60},
		{"EDS quality of life", 1100, 28, 1.75},
	},
	"EDS symptoms": {
		{"EDS joint pain", 8500, 41, 2.30},
		{"EDS fatigue", 6200, 35, 1.95},
		{"EDS skin problems", 3400, 38, 2.15},
		{"EDS gastrointestinal symptoms", 2800, 42, 2.45},
		{"EDS heart symptoms", 2100, 45, 2.80},
		{"What are the first signs of EDS?", 1800, 32, 2.10},
		{"EDS symptoms checklist", 1200, 28, 1.85},
	},
	"MCAS treatment": {
		{"MCAS medication", 6800, 48, 3.10},
		{"MCAS diet", 5400, 35, 2.20},
		{"MCAS natural treatment", 3200, 38, 2.45},
		{"MCAS antihistamines", 4100, 42, 2.80},
		{"MCAS treatment options", 2800, 45, 2.90},
		{"How to treat MCAS", 1900, 32, 2.15},
		{"MCAS specialist treatment", 1500, 38, 3.20},
	},
	"POTS syndrome": {
		{"POTS symptoms", 9800, 44, 2.60},
		{"POTS treatment", 7200, 46, 2.85},
		{"POTS diagnosis", 6100, 49, 3.10},
		{"POTS exercise", 3800, 36, 2.25},
		{"POTS medication", 5200, 45, 2.95},
		{"What is POTS syndrome?", 2400, 31, 2.05},
		{"POTS management strategies", 2100, 33, 2.15},
	},
	"chronic illness journey": {
		{"chronic illness blog", 5400, 28, 1.75},
		{"chronic illness support", 4200, 25, 1.60},
		{"chronic illness community", 3800, 26, 1.70},
		{"chronic illness tips", 3100, 24, 1.55},
		{"living with chronic illness", 2800, 27, 1.80},
		{"chronic illness resources", 2200, 23, 1.45},
		{"How to cope with chronic illness", 1800, 29, 1.90},
	},
}

func genericDemoRows(seed string) []demoRow {
	return []demoRow{
		{seed + " symptoms", 5000, 40, 2.20},
		{seed + " treatment", 4500, 45, 2.80},
		{seed + " diagnosis", 3800, 48, 3.10},
		{"living with " + seed, 2200, 30, 1.85},
		{seed + " specialist", 1800, 35, 2.40},
	}
}

// Demo serves canned research data so the pipeline can run offline.
// Phrases ending in a question are reported as paa.
type Demo struct {
	logger  *slog.Logger
	counter Counter
}

func NewDemo(logger *slog.Logger, counter Counter) *Demo {
	if logger == nil {
		logger = slog.Default()
	}
	if counter == nil {
		counter = nopCounter{}
	}
	return &Demo{logger: logger.With("provider", NameDemo), counter: counter}
}

func (d *Demo) Name() string { return NameDemo }

func (d *Demo) FetchKeywordData(_ context.Context, seed string) []keyword.Record {
	rows, ok := demoData[seed]
	if !ok {
		rows = genericDemoRows(seed)
	}

	records := make([]keyword.Record, 0, len(rows))
	counts := map[keyword.Type]int{}
	for _, row := range rows {
		t := keyword.TypeRelated
		if strings.Contains(row.text, "?") {
			t = keyword.TypePAA
		}
		r, err := keyword.NewRecord(seed, row.text, row.volume, t, SourceDemo,
			keyword.WithDifficulty(row.difficulty), keyword.WithCPC(row.cpc))
		if err != nil {
			d.logger.Error("skipping demo row", "seed", seed, "err", err)
			continue
		}
		records = append(records, r)
		counts[t]++
	}
	for t, n := range counts {
		d.counter.RecordRecords(NameDemo, string(t), n)
	}
	d.logger.Debug("generated demo keywords", "seed", seed, "count", len(records))
	return records
}
