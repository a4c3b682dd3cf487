package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sycomp/sytest/internal/compare"
	"github.com/sycomp/sytest/internal/discovery"
	"github.com/sycomp/sytest/internal/invoker"
	"github.com/sycomp/sytest/internal/report"
)

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pipeline tests require a POSIX shell")
	}
}

func writeFile(t *testing.T, path, contents string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
	return path
}

// writeTool creates an executable shell script acting as a fake external tool.
func writeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write tool %q: %v", name, err)
	}
	return path
}

func exactPlan(stages ...StageSpec) Plan {
	return Plan{
		Name:   "test",
		Stages: stages,
		Judge: func(discovery.TestCase) (Judgment, error) {
			return Judgment{Rule: compare.ExactText{}, Actual: "{out:last}", Expected: "{expected}"}, nil
		},
	}
}

func newTestRunner(t *testing.T, keep bool) *Runner {
	t.Helper()
	return NewRunner(Options{
		Invoker:      invoker.New(invoker.Options{}),
		WorkRoot:     t.TempDir(),
		Keep:         keep,
		StageTimeout: 30 * time.Second,
	})
}

func TestRunCasePass(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "hello\n")
	expected := writeFile(t, filepath.Join(dir, "case.out"), "hello\n")
	tool := writeTool(t, dir, "emit", `cp "$1" "$2"`)

	plan := exactPlan(StageSpec{
		Name:   "last",
		Argv:   []string{tool, "{source}", "{work}/case.ll"},
		Output: "case.ll",
	})
	tc := discovery.TestCase{ID: "case", Source: source, Expected: expected}

	outcome := newTestRunner(t, false).RunCase(context.Background(), tc, plan)
	if outcome.State != report.StatePass {
		t.Fatalf("expected pass, got %+v", outcome)
	}
	if outcome.FailingStage != "" {
		t.Fatalf("pass must not name a failing stage: %+v", outcome)
	}
}

func TestRunCaseShortCircuit(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "")
	log := filepath.Join(dir, "stages.log")
	stage1 := writeTool(t, dir, "stage1", "echo s1 >> "+log+"\nexit 1\n")
	stage2 := writeTool(t, dir, "stage2", "echo s2 >> "+log+"\n")

	plan := exactPlan(
		StageSpec{Name: "first", Argv: []string{stage1}},
		StageSpec{Name: "last", Argv: []string{stage2}, CaptureStdout: "out.txt"},
	)
	tc := discovery.TestCase{ID: "case", Source: source}

	outcome := newTestRunner(t, false).RunCase(context.Background(), tc, plan)
	if outcome.State != report.StateError {
		t.Fatalf("expected error, got %+v", outcome)
	}
	if outcome.FailingStage != "first" {
		t.Fatalf("expected failing stage 'first', got %q", outcome.FailingStage)
	}

	ran, _ := os.ReadFile(log)
	if got := strings.TrimSpace(string(ran)); got != "s1" {
		t.Fatalf("later stages must not run after a failure, log: %q", got)
	}
}

func TestRunCaseLaunchErrorOnFirstOfThree(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "")
	log := filepath.Join(dir, "stages.log")
	spy := writeTool(t, dir, "spy", "echo ran >> "+log+"\n")

	plan := exactPlan(
		StageSpec{Name: "first", Argv: []string{filepath.Join(dir, "missing-tool")}},
		StageSpec{Name: "second", Argv: []string{spy}},
		StageSpec{Name: "last", Argv: []string{spy}, CaptureStdout: "out.txt"},
	)
	tc := discovery.TestCase{ID: "case", Source: source}

	outcome := newTestRunner(t, false).RunCase(context.Background(), tc, plan)
	if outcome.State != report.StateError {
		t.Fatalf("expected error, got %+v", outcome)
	}
	if outcome.FailingStage != "first" {
		t.Fatalf("expected failing stage 'first', got %q", outcome.FailingStage)
	}
	if _, err := os.Stat(log); !os.IsNotExist(err) {
		t.Fatal("stages 2-3 must never be invoked after a launch error on stage 1")
	}
}

func TestRunCaseStageTimeout(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "")
	slow := writeTool(t, dir, "slow", "sleep 5\n")

	plan := exactPlan(StageSpec{
		Name:    "last",
		Argv:    []string{slow},
		Timeout: 100 * time.Millisecond,
	})
	tc := discovery.TestCase{ID: "case", Source: source}

	outcome := newTestRunner(t, false).RunCase(context.Background(), tc, plan)
	if outcome.State != report.StateError {
		t.Fatalf("expected error, got %+v", outcome)
	}
	if !strings.Contains(outcome.Diagnostic, "timed out") {
		t.Fatalf("diagnostic should mention the timeout: %q", outcome.Diagnostic)
	}
}

func TestRunCaseEchoExitCapture(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "")
	expected := writeFile(t, filepath.Join(dir, "case.out"), "5\n7\n")
	run := writeTool(t, dir, "run", "echo 5\nexit 7\n")

	plan := exactPlan(StageSpec{
		Name:             "last",
		Argv:             []string{run},
		CaptureStdout:    "case.actual",
		EchoExit:         true,
		ExitCodeIsResult: true,
	})
	tc := discovery.TestCase{ID: "case", Source: source, Expected: expected}

	outcome := newTestRunner(t, false).RunCase(context.Background(), tc, plan)
	if outcome.State != report.StatePass {
		t.Fatalf("program exit code is a result, not a failure: %+v", outcome)
	}
}

func TestRunCaseMissingDeclaredArtifact(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "")
	noop := writeTool(t, dir, "noop", "exit 0\n")

	plan := exactPlan(StageSpec{
		Name:   "last",
		Argv:   []string{noop},
		Output: "case.ll",
	})
	tc := discovery.TestCase{ID: "case", Source: source}

	outcome := newTestRunner(t, false).RunCase(context.Background(), tc, plan)
	if outcome.State != report.StateError {
		t.Fatalf("expected error for missing artifact, got %+v", outcome)
	}
	if !strings.Contains(outcome.Diagnostic, "case.ll") {
		t.Fatalf("diagnostic should name the artifact: %q", outcome.Diagnostic)
	}
}

func TestRunCaseMissingExpectedIsSkipped(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "")
	run := writeTool(t, dir, "run", "echo 5\n")

	plan := exactPlan(StageSpec{
		Name:          "last",
		Argv:          []string{run},
		CaptureStdout: "case.actual",
	})
	tc := discovery.TestCase{ID: "case", Source: source}

	outcome := newTestRunner(t, false).RunCase(context.Background(), tc, plan)
	if outcome.State != report.StateSkipped {
		t.Fatalf("missing expected artifact must be skipped, got %+v", outcome)
	}
}

func TestRunCaseIdempotent(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "v\n")
	expected := writeFile(t, filepath.Join(dir, "case.out"), "v\n")
	tool := writeTool(t, dir, "emit", `cat "$1"`)

	plan := exactPlan(StageSpec{
		Name:          "last",
		Argv:          []string{tool, "{source}"},
		CaptureStdout: "case.actual",
	})
	tc := discovery.TestCase{ID: "case", Source: source, Expected: expected}
	r := newTestRunner(t, false)

	first := r.RunCase(context.Background(), tc, plan)
	second := r.RunCase(context.Background(), tc, plan)
	if first.State != second.State {
		t.Fatalf("re-running an unchanged case changed its state: %v vs %v", first.State, second.State)
	}
}

func TestRunCaseKeepArtifacts(t *testing.T) {
	requirePOSIX(t)
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "case.sy"), "x\n")
	tool := writeTool(t, dir, "emit", `cp "$1" "$2"`)

	workRoot := t.TempDir()
	r := NewRunner(Options{
		Invoker:      invoker.New(invoker.Options{}),
		WorkRoot:     workRoot,
		Keep:         true,
		StageTimeout: 30 * time.Second,
	})
	plan := exactPlan(StageSpec{
		Name:   "last",
		Argv:   []string{tool, "{source}", "{work}/case.ll"},
		Output: "case.ll",
	})
	r.RunCase(context.Background(), discovery.TestCase{ID: "step/case", Source: source}, plan)

	kept := filepath.Join(workRoot, "step__case", "case.ll")
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("expected kept artifact at %q: %v", kept, err)
	}
}

func TestExpandUnknownPlaceholder(t *testing.T) {
	if _, err := expand("{bogus}", map[string]string{"work": "/tmp"}); err == nil {
		t.Fatal("expected error for unknown placeholder")
	}
}

func TestExpandArtifactReference(t *testing.T) {
	vars := map[string]string{"out:compile": "/w/case.ll", "work": "/w"}
	got, err := expand("{out:compile}", vars)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != "/w/case.ll" {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
