package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sycomp/sytest/internal/discovery"
	"github.com/sycomp/sytest/internal/report"
)

// Scheduler fans independent cases out to a bounded worker pool. Stages
// within one case stay strictly sequential; only cases run in parallel.
type Scheduler struct {
	runner  *Runner
	workers int
}

// NewScheduler creates a scheduler running at most workers cases at once.
func NewScheduler(runner *Runner, workers int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{runner: runner, workers: workers}
}

// Run executes every case and records outcomes into rep in discovery
// order, regardless of the order workers finish in. Cancelling ctx stops
// in-flight subprocesses and marks unfinished cases Skipped; the report
// still enumerates every discovered case exactly once.
func (s *Scheduler) Run(ctx context.Context, cases []discovery.TestCase, plan Plan, rep *report.Report) {
	outcomes := make([]report.CaseOutcome, len(cases))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, tc := range cases {
		i, tc := i, tc
		g.Go(func() error {
			outcomes[i] = s.runner.RunCase(ctx, tc, plan)
			return nil
		})
	}
	// Workers never return errors; case failures live in the outcomes.
	_ = g.Wait()

	for _, outcome := range outcomes {
		rep.Record(outcome)
	}
}
