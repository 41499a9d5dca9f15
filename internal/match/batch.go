package match

import (
	"context"
	"sync/atomic"

	"github.com/teamwerk/akquise-pilot/internal/opportunity"
	"github.com/teamwerk/akquise-pilot/internal/policy"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxParallel bounds concurrent opportunity evaluations per batch.
const DefaultMaxParallel = 4

// Recorder persists the outcome of one evaluated opportunity. Implemented by
// the store; stubbed in tests.
type Recorder interface {
	RecordOutcome(ctx context.Context, opp *opportunity.Opportunity, result *Result) error
}

// FailureSink flags opportunities whose evaluation failed so a later run can
// retry them. Optional; without one failures are only logged and counted.
type FailureSink interface {
	MarkError(ctx context.Context, opp *opportunity.Opportunity) error
}

// Stats summarizes one batch run.
type Stats struct {
	Analyzed int64
	Applied  int64
	Reviewed int64
	Rejected int64
	Errors   int64
}

type statCounters struct {
	analyzed atomic.Int64
	applied  atomic.Int64
	reviewed atomic.Int64
	rejected atomic.Int64
	errors   atomic.Int64
}

func (c *statCounters) snapshot() Stats {
	return Stats{
		Analyzed: c.analyzed.Load(),
		Applied:  c.applied.Load(),
		Reviewed: c.reviewed.Load(),
		Rejected: c.rejected.Load(),
		Errors:   c.errors.Load(),
	}
}

// Batch evaluates a set of independent opportunities with bounded
// parallelism. Scoring is pure, so concurrent evaluation is safe; the
// admission controller serializes the only shared counter itself.
type Batch struct {
	orchestrator *Orchestrator
	recorder     Recorder
	failures     FailureSink
	maxParallel  int
	logger       *zap.Logger
}

// NewBatch builds a batch runner. maxParallel <= 0 selects the default;
// recorder and failures may be nil.
func NewBatch(orchestrator *Orchestrator, recorder Recorder, failures FailureSink, maxParallel int, log *zap.Logger) *Batch {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Batch{
		orchestrator: orchestrator,
		recorder:     recorder,
		failures:     failures,
		maxParallel:  maxParallel,
		logger:       log,
	}
}

// Run processes the batch. A failing opportunity is counted and logged but
// does not stop the run; only context cancellation aborts the whole batch.
func (b *Batch) Run(ctx context.Context, opportunities []*opportunity.Opportunity) (Stats, error) {
	var counters statCounters

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.maxParallel)

	for _, opp := range opportunities {
		if groupCtx.Err() != nil {
			break
		}

		group.Go(func() error {
			if err := b.processOne(groupCtx, opp, &counters); err != nil {
				counters.errors.Add(1)
				b.logger.Error("processing opportunity failed",
					zap.String("opportunity", opp.Key()),
					zap.Error(err),
				)
				if b.failures != nil {
					if markErr := b.failures.MarkError(groupCtx, opp); markErr != nil {
						b.logger.Error("marking opportunity as errored failed",
							zap.String("opportunity", opp.Key()),
							zap.Error(markErr),
						)
					}
				}
			}
			// Per-opportunity failures never cancel the group.
			return nil
		})
	}

	err := group.Wait()
	stats := counters.snapshot()

	b.logger.Info("batch finished",
		zap.Int("opportunities", len(opportunities)),
		zap.Int64("analyzed", stats.Analyzed),
		zap.Int64("applied", stats.Applied),
		zap.Int64("reviewed", stats.Reviewed),
		zap.Int64("rejected", stats.Rejected),
		zap.Int64("errors", stats.Errors),
	)

	return stats, err
}

func (b *Batch) processOne(ctx context.Context, opp *opportunity.Opportunity, counters *statCounters) error {
	result, err := b.orchestrator.Match(ctx, opp)
	if err != nil {
		return err
	}

	if b.recorder != nil {
		if err := b.recorder.RecordOutcome(ctx, opp, result); err != nil {
			// An apply has already claimed an admission slot; free it so
			// the retry of this opportunity cannot be admitted twice.
			if result.Decision == policy.DecisionApply {
				if relErr := b.orchestrator.ReleaseSlot(ctx, opp); relErr != nil {
					b.logger.Error("releasing admission slot after failed record",
						zap.String("opportunity", opp.Key()),
						zap.Error(relErr),
					)
				}
			}
			return err
		}
	}

	counters.analyzed.Add(1)
	switch result.Decision {
	case policy.DecisionApply:
		counters.applied.Add(1)
	case policy.DecisionReview:
		counters.reviewed.Add(1)
	case policy.DecisionReject:
		counters.rejected.Add(1)
	}

	return nil
}
