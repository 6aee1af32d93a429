package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/FranksOps/furrow/internal/cluster"
	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/pkg/ratelimit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProvider returns fixed records per seed and panics on seeds listed in panics.
type mockProvider struct {
	mu     sync.Mutex
	data   map[string][]keyword.Record
	panics map[string]bool
	calls  []string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) FetchKeywordData(_ context.Context, seed string) []keyword.Record {
	m.mu.Lock()
	m.calls = append(m.calls, seed)
	m.mu.Unlock()
	if m.panics[seed] {
		panic("provider exploded")
	}
	return m.data[seed]
}

func rec(seed, related string, t keyword.Type) keyword.Record {
	return keyword.Record{SeedKeyword: seed, RelatedKeyword: related, Type: t, Source: "mock"}
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	clusters map[string]int
}

func (r *countingRecorder) RecordSeed(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func (r *countingRecorder) RecordCluster(bucket string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clusters == nil {
		r.clusters = map[string]int{}
	}
	r.clusters[bucket] = n
}

func TestPipeline_Run(t *testing.T) {
	prov := &mockProvider{data: map[string][]keyword.Record{
		"EDS": {
			rec("EDS", "EDS joint pain", keyword.TypeRelated),
			rec("EDS", "What causes EDS?", keyword.TypePAA),
		},
	}}
	metrics := &countingRecorder{}
	p := Pipeline{
		Provider:   prov,
		Classifier: cluster.New(cluster.DefaultTable()),
		Logger:     discardLogger(),
		Metrics:    metrics,
	}

	res, err := p.Run(context.Background(), []string{"EDS"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" {
		t.Errorf("expected a run id")
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if diff := cmp.Diff([]string{"EDS joint pain"}, res.Clusters.Keywords["symptoms"]); diff != "" {
		t.Errorf("symptoms mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"What causes EDS?"}, res.Clusters.Keywords["resources"]); diff != "" {
		t.Errorf("resources mismatch (-want +got):\n%s", diff)
	}
	if res.FinishedAt.Before(res.StartedAt) {
		t.Errorf("finish time before start time")
	}
	if metrics.outcomes[OutcomeOK] != 1 {
		t.Errorf("expected 1 ok seed, got %v", metrics.outcomes)
	}
	if metrics.clusters["symptoms"] != 1 || metrics.clusters["diagnosis"] != 0 {
		t.Errorf("unexpected cluster sizes: %v", metrics.clusters)
	}
}

func TestPipeline_PanicDoesNotAbortBatch(t *testing.T) {
	prov := &mockProvider{
		data: map[string][]keyword.Record{
			"a": {rec("a", "a symptoms", keyword.TypeRelated)},
			"c": {rec("c", "c treatment", keyword.TypeRelated)},
		},
		panics: map[string]bool{"b": true},
	}
	metrics := &countingRecorder{}
	p := Pipeline{Provider: prov, Classifier: cluster.New(cluster.DefaultTable()), Logger: discardLogger(), Metrics: metrics}

	res, err := p.Run(context.Background(), []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, prov.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, res.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if len(res.Records) != 2 {
		t.Errorf("expected 2 records, got %d", len(res.Records))
	}
	want := map[string]int{OutcomeOK: 2, OutcomeFailed: 1, OutcomeEmpty: 1}
	if diff := cmp.Diff(want, metrics.outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_ThrottlesBetweenSeeds(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	throttle := ratelimit.NewThrottle(DefaultThrottle, 0).WithClock(clock.Now, clock.Sleep)
	p := Pipeline{
		Provider:   &mockProvider{},
		Classifier: cluster.New(cluster.DefaultTable()),
		Throttle:   throttle,
		Logger:     discardLogger(),
	}

	if _, err := p.Run(context.Background(), []string{"a", "b", "c"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []time.Duration{time.Second, time.Second}
	if diff := cmp.Diff(want, clock.sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_ConcurrentKeepsInputOrder(t *testing.T) {
	data := map[string][]keyword.Record{}
	var seeds []string
	for _, s := range strings.Split("a b c d e f g h i j", " ") {
		seeds = append(seeds, s)
		data[s] = []keyword.Record{rec(s, s+" one", keyword.TypeRelated), rec(s, s+" two", keyword.TypeRelated)}
	}
	prov := &mockProvider{data: data, panics: map[string]bool{"e": true}}
	p := Pipeline{
		Provider:    prov,
		Classifier:  cluster.New(cluster.DefaultTable()),
		Logger:      discardLogger(),
		Concurrency: 4,
	}

	res, err := p.Run(context.Background(), seeds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var got []string
	for _, r := range res.Records {
		got = append(got, r.RelatedKeyword)
	}
	var want []string
	for _, s := range seeds {
		if s == "e" {
			continue
		}
		want = append(want, s+" one", s+" two")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(seeds, res.Seeds); diff != "" {
		t.Errorf("seeds mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"e"}, res.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 3} {
		prov := &mockProvider{}
		p := Pipeline{Provider: prov, Classifier: cluster.New(cluster.DefaultTable()), Logger: discardLogger(), Concurrency: workers}
		res, err := p.Run(ctx, []string{"a", "b"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("concurrency %d: expected context.Canceled, got %v", workers, err)
		}
		if len(prov.calls) != 0 {
			t.Errorf("concurrency %d: expected no provider calls, got %v", workers, prov.calls)
		}
		if res.Clusters.Len() != 0 || len(res.Clusters.Names) == 0 {
			t.Errorf("concurrency %d: expected empty clusters with all buckets", workers)
		}
	}
}

func TestPipeline_MissingComponents(t *testing.T) {
	if _, err := (&Pipeline{Classifier: cluster.New(cluster.DefaultTable())}).Run(context.Background(), nil); err == nil {
		t.Errorf("expected error for missing provider")
	}
	if _, err := (&Pipeline{Provider: &mockProvider{}}).Run(context.Background(), nil); err == nil {
		t.Errorf("expected error for missing classifier")
	}
}
