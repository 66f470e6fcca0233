// Package processor drives the dedup engine: batch runs over records flagged update_needed,
// integrity sweeps over live groups, and per-record passes for streamed record events.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/dedup"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// Engine is the part of dedup.Handler the processor drives
type Engine interface {
	Process(ctx context.Context, id string) (dedup.Outcome, error)
	CheckDedupRecord(ctx context.Context, group *models.DedupGroup) ([]string, error)
}

// Config sizes the worker pool
type Config struct {
	Workers   int
	BatchSize int
}

// Processor runs dedup passes over a bounded worker pool
type Processor struct {
	logger    ectologger.Logger
	store     store.Store
	engine    Engine
	workers   int
	batchSize int
}

// NewProcessor creates a processor. Non-positive sizes fall back to 4 workers and batches of 500.
func NewProcessor(logger ectologger.Logger, st store.Store, engine Engine, cfg Config) *Processor {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 500
	}
	return &Processor{
		logger:    logger,
		store:     st,
		engine:    engine,
		workers:   cfg.Workers,
		batchSize: cfg.BatchSize,
	}
}

// ProcessMessage handles one record event from the consumer. Errors are returned so the
// message is not committed.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessMessage")
	defer span.End()

	_, err := p.process(ctx, msg.RecordID())
	return err
}

// process runs one record pass and records its outcome
func (p *Processor) process(ctx context.Context, id string) (dedup.Outcome, error) {
	metrics.WorkersBusy.Inc()
	defer metrics.WorkersBusy.Dec()

	outcome, err := p.runEngine(ctx, id)
	if err != nil {
		metrics.RecordsProcessedTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"record_id": id,
		}).Error("Failed to dedup record")
		return "", err
	}
	metrics.RecordsProcessedTotal.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

// runEngine turns a panic inside one record's pass into an error for that record
func (p *Processor) runEngine(ctx context.Context, id string) (outcome dedup.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = "", fmt.Errorf("dedup pass panicked: %v", r)
		}
	}()
	return p.engine.Process(ctx, id)
}

// RunBatch processes every record flagged update_needed, page by page. A failing record is
// logged and counted; it keeps its flag and is retried by the next run.
func (p *Processor) RunBatch(ctx context.Context) (*RunStats, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.RunBatch")
	defer span.End()

	stats := &RunStats{}
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	after := ""
	for {
		ids, err := p.pendingPage(ctx, after)
		if err != nil {
			return stats, err
		}
		if len(ids) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for _, id := range ids {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcome, err := p.process(gctx, id)
				stats.record(outcome, err)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}

		if len(ids) < p.batchSize {
			break
		}
		after = ids[len(ids)-1]
	}

	p.logger.WithContext(ctx).WithFields(stats.Fields()).Info("Dedup run completed")
	return stats, nil
}

// pendingPage reads one page of flagged record ids. The cursor is drained before any
// worker writes.
func (p *Processor) pendingPage(ctx context.Context, after string) ([]string, error) {
	var ids []string
	for rec, err := range p.store.FindRecords(ctx, store.RecordFilter{
		UpdateNeeded: store.Bool(true),
		AfterID:      after,
		Limit:        p.batchSize,
	}) {
		if err != nil {
			return nil, err
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// CheckGroups runs the integrity check over every live group
func (p *Processor) CheckGroups(ctx context.Context) (*CheckStats, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.CheckGroups")
	defer span.End()

	stats := &CheckStats{}
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	after := ""
	for {
		var groups []*models.DedupGroup
		for group, err := range p.store.FindDedups(ctx, store.GroupFilter{
			Deleted: store.Bool(false),
			AfterID: after,
			Limit:   p.batchSize,
		}) {
			if err != nil {
				return stats, err
			}
			groups = append(groups, group)
		}
		if len(groups) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for _, group := range groups {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				lines, err := p.engine.CheckDedupRecord(gctx, group)
				stats.record(lines, err)
				if err != nil {
					p.logger.WithContext(gctx).WithError(err).WithFields(map[string]any{
						"dedup_id": group.ID,
					}).Error("Failed to check dedup group")
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}

		if len(groups) < p.batchSize {
			break
		}
		after = groups[len(groups)-1].ID
	}

	p.logger.WithContext(ctx).WithFields(stats.Fields()).Info("Dedup group check completed")
	return stats, nil
}

// Run calls RunBatch every interval until ctx is cancelled
func (p *Processor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.WithContext(ctx).WithError(err).Error("Dedup run failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunStats summarizes one batch run
type RunStats struct {
	Processed atomic.Int64
	Matched   atomic.Int64
	Unmatched atomic.Int64
	Skipped   atomic.Int64
	Failed    atomic.Int64
	Duration  time.Duration
}

func (s *RunStats) record(outcome dedup.Outcome, err error) {
	s.Processed.Add(1)
	if err != nil {
		s.Failed.Add(1)
		return
	}
	switch outcome {
	case dedup.OutcomeMatched:
		s.Matched.Add(1)
	case dedup.OutcomeUnmatched:
		s.Unmatched.Add(1)
	case dedup.OutcomeSkipped:
		s.Skipped.Add(1)
	}
}

// Fields returns the stats as log fields
func (s *RunStats) Fields() map[string]any {
	return map[string]any{
		"processed": s.Processed.Load(),
		"matched":   s.Matched.Load(),
		"unmatched": s.Unmatched.Load(),
		"skipped":   s.Skipped.Load(),
		"failed":    s.Failed.Load(),
		"duration":  s.Duration.String(),
	}
}

// CheckStats summarizes one integrity sweep
type CheckStats struct {
	Checked  atomic.Int64
	Repaired atomic.Int64
	Removed  atomic.Int64
	Failed   atomic.Int64
	Duration time.Duration
}

func (s *CheckStats) record(lines []string, err error) {
	s.Checked.Add(1)
	if err != nil {
		s.Failed.Add(1)
		return
	}
	if len(lines) > 0 {
		s.Repaired.Add(1)
		s.Removed.Add(int64(len(lines)))
	}
}

// Fields returns the stats as log fields
func (s *CheckStats) Fields() map[string]any {
	return map[string]any{
		"checked":  s.Checked.Load(),
		"repaired": s.Repaired.Load(),
		"removed":  s.Removed.Load(),
		"failed":   s.Failed.Load(),
		"duration": s.Duration.String(),
	}
}
