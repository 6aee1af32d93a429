// Package pipeline drives a research run: it asks a provider about each seed,
// pacing the calls, and clusters everything that comes back.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/furrow/internal/cluster"
	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/internal/provider"
	"github.com/FranksOps/furrow/pkg/ratelimit"
)

// DefaultThrottle is the pause between successive seeds.
const DefaultThrottle = time.Second

// Seed outcomes reported to the Recorder.
const (
	OutcomeOK     = "ok"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// Recorder receives per-seed outcomes and final cluster sizes.
type Recorder interface {
	RecordSeed(outcome string)
	RecordCluster(bucket string, n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSeed(string)         {}
func (nopRecorder) RecordCluster(string, int) {}

// Pipeline wires a provider to a classifier.
type Pipeline struct {
	Provider   provider.Provider
	Classifier *cluster.Classifier
	// Throttle spaces provider calls. Nil means no pacing.
	Throttle *ratelimit.Throttle
	Logger   *slog.Logger
	// Concurrency > 1 processes seeds on a bounded worker pool. Throttle
	// still paces calls across all workers.
	Concurrency int
	Metrics     Recorder
}

// Result is everything a run produced. Records and Failed follow seed input
// order regardless of Concurrency.
type Result struct {
	RunID      string
	Records    []keyword.Record
	Clusters   cluster.Map
	Seeds      []string
	Failed     []string
	StartedAt  time.Time
	FinishedAt time.Time
}

type seedResult struct {
	records []keyword.Record
	failed  bool
	done    bool
}

// Run processes every seed. A seed whose provider call panics is logged and
// listed in Result.Failed; the batch carries on. Run returns an error only
// when the pipeline is incomplete or ctx is canceled, in which case Result
// still holds the seeds finished so far.
func (p *Pipeline) Run(ctx context.Context, seeds []string) (Result, error) {
	if p.Provider == nil {
		return Result{}, errors.New("context: provider is nil")
	}
	if p.Classifier == nil {
		return Result{}, errors.New("context: classifier is nil")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := p.Metrics
	if rec == nil {
		rec = nopRecorder{}
	}

	res := Result{RunID: uuid.New().String(), StartedAt: time.Now()}
	logger = logger.With("run_id", res.RunID)
	logger.Info("starting keyword research", "seeds", len(seeds), "provider", p.Provider.Name(), "concurrency", p.Concurrency)

	slots := make([]seedResult, len(seeds))
	var runErr error
	if p.Concurrency > 1 {
		runErr = p.runPool(ctx, logger, rec, seeds, slots)
	} else {
		runErr = p.runSequential(ctx, logger, rec, seeds, slots)
	}

	for i, s := range slots {
		if !s.done {
			continue
		}
		res.Seeds = append(res.Seeds, seeds[i])
		if s.failed {
			res.Failed = append(res.Failed, seeds[i])
		}
		res.Records = append(res.Records, s.records...)
	}

	res.Clusters = p.Classifier.Classify(res.Records)
	for _, name := range res.Clusters.Names {
		rec.RecordCluster(name, len(res.Clusters.Keywords[name]))
	}
	res.FinishedAt = time.Now()

	if runErr != nil {
		logger.Warn("keyword research interrupted", "processed", len(res.Seeds), "err", runErr)
		return res, fmt.Errorf("context: %w", runErr)
	}
	logger.Info("keyword research complete",
		"records", len(res.Records), "failed", len(res.Failed), "duration", res.FinishedAt.Sub(res.StartedAt))
	return res, nil
}

func (p *Pipeline) runSequential(ctx context.Context, logger *slog.Logger, rec Recorder, seeds []string, slots []seedResult) error {
	for i, seed := range seeds {
		if err := p.Throttle.Wait(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info("processing seed", "index", i+1, "total", len(seeds), "seed", seed)
		slots[i] = p.process(ctx, logger, rec, seed)
	}
	return nil
}

func (p *Pipeline) runPool(ctx context.Context, logger *slog.Logger, rec Recorder, seeds []string, slots []seedResult) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := p.Throttle.Wait(gCtx); err != nil {
				return err
			}
			if err := gCtx.Err(); err != nil {
				return err
			}
			logger.Info("processing seed", "index", i+1, "total", len(seeds), "seed", seed)
			slots[i] = p.process(gCtx, logger, rec, seed)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, rec Recorder, seed string) (out seedResult) {
	out.done = true
	defer func() {
		if r := recover(); r != nil {
			logger.Error("error processing seed", "seed", seed, "err", fmt.Errorf("panic: %v", r))
			rec.RecordSeed(OutcomeFailed)
			out = seedResult{failed: true, done: true}
		}
	}()

	records := p.Provider.FetchKeywordData(ctx, seed)
	if len(records) == 0 {
		logger.Warn("no keyword data for seed", "seed", seed)
		rec.RecordSeed(OutcomeEmpty)
	} else {
		logger.Info("collected keywords", "seed", seed, "count", len(records))
		rec.RecordSeed(OutcomeOK)
	}
	return seedResult{records: records, done: true}
}
