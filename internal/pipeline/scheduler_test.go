package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sycomp/sytest/internal/compare"
	"github.com/sycomp/sytest/internal/discovery"
	"github.com/sycomp/sytest/internal/invoker"
	"github.com/sycomp/sytest/internal/report"
)

// delayPlan builds a plan whose single stage sleeps for the duration named
// by the case's input artifact contents, then echoes the case source.
func delayPlan(t *testing.T, dir string) Plan {
	t.Helper()
	tool := writeTool(t, dir, "delay", `sleep "$(cat "$1")"
cat "$2"`)
	return Plan{
		Name: "delay",
		Stages: []StageSpec{{
			Name:          "last",
			Argv:          []string{tool, "{input}", "{source}"},
			CaptureStdout: "actual",
		}},
		Judge: func(discovery.TestCase) (Judgment, error) {
			return Judgment{Rule: compare.ExactText{}, Actual: "{out:last}", Expected: "{expected}"}, nil
		},
	}
}

func delayCase(t *testing.T, dir, id, delay string) discovery.TestCase {
	t.Helper()
	source := filepath.Join(dir, id+".sy")
	require.NoError(t, os.WriteFile(source, []byte(id+"\n"), 0o644))
	input := filepath.Join(dir, id+".in")
	require.NoError(t, os.WriteFile(input, []byte(delay+"\n"), 0o644))
	expected := filepath.Join(dir, id+".out")
	require.NoError(t, os.WriteFile(expected, []byte(id+"\n"), 0o644))
	return discovery.TestCase{ID: id, Source: source, Input: input, Expected: expected}
}

func TestSchedulerPreservesDiscoveryOrder(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	plan := delayPlan(t, dir)

	// The first case finishes last; the report must still lead with it.
	cases := []discovery.TestCase{
		delayCase(t, dir, "a_slow", "0.4"),
		delayCase(t, dir, "b_mid", "0.2"),
		delayCase(t, dir, "c_fast", "0"),
	}

	runner := NewRunner(Options{
		Invoker:      invoker.New(invoker.Options{}),
		WorkRoot:     t.TempDir(),
		StageTimeout: 30 * time.Second,
	})
	rep := report.New(false)
	NewScheduler(runner, 3).Run(context.Background(), cases, plan, rep)

	outcomes := rep.Outcomes()
	require.Len(t, outcomes, len(cases))
	for i, tc := range cases {
		assert.Equal(t, tc.ID, outcomes[i].CaseID)
		assert.Equal(t, report.StatePass, outcomes[i].State)
	}
}

func TestSchedulerReportCompleteness(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	plan := delayPlan(t, dir)

	var cases []discovery.TestCase
	for i := 0; i < 9; i++ {
		cases = append(cases, delayCase(t, dir, fmt.Sprintf("case%02d", i), "0"))
	}

	runner := NewRunner(Options{
		Invoker:      invoker.New(invoker.Options{}),
		WorkRoot:     t.TempDir(),
		StageTimeout: 30 * time.Second,
	})
	rep := report.New(false)
	NewScheduler(runner, 4).Run(context.Background(), cases, plan, rep)

	summary := rep.Finalize()
	assert.Equal(t, len(cases), summary.Total, "no case may be lost or duplicated")
	assert.Equal(t, len(cases), summary.Passed)
}

func TestSchedulerFailureIsolation(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	plan := delayPlan(t, dir)

	broken := delayCase(t, dir, "broken", "0")
	broken.Source = filepath.Join(dir, "missing.sy") // cat fails, stage exits non-zero
	cases := []discovery.TestCase{
		delayCase(t, dir, "a_ok", "0"),
		broken,
		delayCase(t, dir, "z_ok", "0"),
	}

	runner := NewRunner(Options{
		Invoker:      invoker.New(invoker.Options{}),
		WorkRoot:     t.TempDir(),
		StageTimeout: 30 * time.Second,
	})
	rep := report.New(false)
	NewScheduler(runner, 2).Run(context.Background(), cases, plan, rep)

	outcomes := rep.Outcomes()
	require.Len(t, outcomes, 3)
	assert.Equal(t, report.StatePass, outcomes[0].State)
	assert.Equal(t, report.StateError, outcomes[1].State)
	assert.Equal(t, report.StatePass, outcomes[2].State, "one case's failure must not affect another")
}

func TestSchedulerCancellation(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	plan := delayPlan(t, dir)

	cases := []discovery.TestCase{
		delayCase(t, dir, "fast", "0"),
		delayCase(t, dir, "slow1", "30"),
		delayCase(t, dir, "slow2", "30"),
	}

	runner := NewRunner(Options{
		Invoker:      invoker.New(invoker.Options{}),
		WorkRoot:     t.TempDir(),
		StageTimeout: 60 * time.Second,
	})
	rep := report.New(false)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	NewScheduler(runner, 3).Run(ctx, cases, plan, rep)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 10*time.Second, "cancellation must terminate in-flight subprocesses promptly")

	outcomes := rep.Outcomes()
	require.Len(t, outcomes, 3)
	assert.Equal(t, report.StatePass, outcomes[0].State, "completed cases keep their true outcome")
	assert.Equal(t, report.StateSkipped, outcomes[1].State)
	assert.Equal(t, report.StateSkipped, outcomes[2].State)
}

func TestSchedulerCancelledBeforeStart(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	plan := delayPlan(t, dir)
	cases := []discovery.TestCase{
		delayCase(t, dir, "a", "0"),
		delayCase(t, dir, "b", "0"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(Options{
		Invoker:  invoker.New(invoker.Options{}),
		WorkRoot: t.TempDir(),
	})
	rep := report.New(false)
	NewScheduler(runner, 2).Run(ctx, cases, plan, rep)

	for _, outcome := range rep.Outcomes() {
		assert.Equal(t, report.StateSkipped, outcome.State)
	}
}
