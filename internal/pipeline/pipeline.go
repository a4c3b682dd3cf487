package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sycomp/sytest/internal/discovery"
	"github.com/sycomp/sytest/internal/invoker"
	"github.com/sycomp/sytest/internal/report"
)

const cancelledDiagnostic = "run cancelled"

// Options configure a Runner.
type Options struct {
	Invoker *invoker.Invoker
	// WorkRoot is the run-level directory under which each case gets a
	// private scratch directory.
	WorkRoot string
	// Keep leaves case scratch directories in place after the run.
	Keep bool
	// StageTimeout is the default per-stage timeout when a StageSpec does
	// not set its own.
	StageTimeout time.Duration
	// TailLines bounds diagnostic stderr excerpts.
	TailLines int
	Now       func() time.Time
}

// Runner executes one case's pipeline: stages strictly in declared order,
// short-circuiting on the first failure, then the comparator.
type Runner struct {
	opts Options
}

// NewRunner creates a Runner with the supplied options.
func NewRunner(opts Options) *Runner {
	if opts.Invoker == nil {
		opts.Invoker = invoker.New(invoker.Options{})
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts}
}

// RunCase executes the plan for a single case and converts every failure
// mode into a CaseOutcome. Case-level conditions never escape as errors;
// they are encoded in the outcome so one case cannot abort the run.
func (r *Runner) RunCase(ctx context.Context, tc discovery.TestCase, plan Plan) report.CaseOutcome {
	start := r.opts.Now()
	outcome := report.CaseOutcome{CaseID: tc.ID}

	finish := func(o report.CaseOutcome) report.CaseOutcome {
		o.Duration = r.opts.Now().Sub(start)
		o.DurationMS = o.Duration.Milliseconds()
		return o
	}

	if ctx.Err() != nil {
		outcome.State = report.StateSkipped
		outcome.Diagnostic = cancelledDiagnostic
		return finish(outcome)
	}

	workDir := filepath.Join(r.opts.WorkRoot, workDirName(tc.ID))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		outcome.State = report.StateError
		outcome.Diagnostic = fmt.Sprintf("create work dir: %v", err)
		return finish(outcome)
	}
	if !r.opts.Keep {
		defer os.RemoveAll(workDir)
	}

	vars := map[string]string{
		"source":   tc.Source,
		"input":    tc.Input,
		"expected": tc.Expected,
		"work":     workDir,
	}

	for _, stage := range plan.Stages {
		if ctx.Err() != nil {
			outcome.State = report.StateSkipped
			outcome.Diagnostic = cancelledDiagnostic
			return finish(outcome)
		}

		stageOutcome, ok := r.runStage(ctx, stage, vars)
		if !ok {
			outcome.State = stageOutcome.State
			outcome.FailingStage = stageOutcome.FailingStage
			outcome.Diagnostic = stageOutcome.Diagnostic
			return finish(outcome)
		}
	}

	judgment, err := plan.Judge(tc)
	if err != nil {
		outcome.State = report.StateError
		outcome.Diagnostic = err.Error()
		return finish(outcome)
	}
	actual, err := expand(judgment.Actual, vars)
	if err != nil {
		outcome.State = report.StateError
		outcome.Diagnostic = err.Error()
		return finish(outcome)
	}
	expected, err := expand(judgment.Expected, vars)
	if err != nil {
		outcome.State = report.StateError
		outcome.Diagnostic = err.Error()
		return finish(outcome)
	}

	verdict := judgment.Rule.Compare(ctx, actual, expected)
	if ctx.Err() != nil {
		outcome.State = report.StateSkipped
		outcome.Diagnostic = cancelledDiagnostic
		return finish(outcome)
	}
	outcome.State = verdict.State
	outcome.Diagnostic = verdict.Diagnostic
	return finish(outcome)
}

// runStage invokes one stage and records its artifact. The bool result is
// false when the pipeline must short-circuit; the partial outcome then
// carries the failing stage and diagnostic.
func (r *Runner) runStage(ctx context.Context, stage StageSpec, vars map[string]string) (report.CaseOutcome, bool) {
	fail := func(state report.State, format string, args ...any) (report.CaseOutcome, bool) {
		return report.CaseOutcome{
			State:        state,
			FailingStage: stage.Name,
			Diagnostic:   fmt.Sprintf(format, args...),
		}, false
	}

	argv, err := expandArgv(stage.Argv, vars)
	if err != nil {
		return fail(report.StateError, "%v", err)
	}
	if len(argv) == 0 {
		return fail(report.StateError, "stage has empty argv")
	}
	stdin, err := expand(stage.Stdin, vars)
	if err != nil {
		return fail(report.StateError, "%v", err)
	}

	timeout := stage.Timeout
	if timeout == 0 {
		timeout = r.opts.StageTimeout
	}

	result, err := r.opts.Invoker.Invoke(ctx, invoker.Spec{
		Path:    argv[0],
		Args:    argv[1:],
		Dir:     vars["work"],
		Stdin:   stdin,
		Timeout: timeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			return fail(report.StateSkipped, cancelledDiagnostic)
		}
		return fail(report.StateError, "%v", err)
	}
	if ctx.Err() != nil {
		return fail(report.StateSkipped, cancelledDiagnostic)
	}
	if result.TimedOut {
		return fail(report.StateError, "timed out after %s", timeout)
	}
	if result.ExitCode != 0 && !stage.ExitCodeIsResult {
		diag := tailLines(result.Stderr, r.opts.TailLines)
		if diag == "" {
			diag = tailLines(result.Stdout, r.opts.TailLines)
		}
		return fail(report.StateError, "exit %d: %s", result.ExitCode, diag)
	}

	if stage.CaptureStdout != "" {
		capturePath := filepath.Join(vars["work"], stage.CaptureStdout)
		if err := os.WriteFile(capturePath, []byte(captureContents(result, stage.EchoExit)), 0o644); err != nil {
			return fail(report.StateError, "write captured output: %v", err)
		}
		vars["out:"+stage.Name] = capturePath
	}

	if stage.Output != "" {
		artifact := filepath.Join(vars["work"], stage.Output)
		info, err := os.Stat(artifact)
		if err != nil || info.IsDir() {
			return fail(report.StateError, "stage did not produce %s", stage.Output)
		}
		vars["out:"+stage.Name] = artifact
	}

	return report.CaseOutcome{}, true
}

// captureContents renders a stage's stdout artifact. With EchoExit the exit
// code trails the output on its own line, separated from non-empty output
// by a newline (the golden-output convention).
func captureContents(result invoker.Result, echoExit bool) string {
	out := result.Stdout
	if !echoExit {
		return out
	}
	if len(out) > 0 && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + strconv.Itoa(result.ExitCode) + "\n"
}

func workDirName(caseID string) string {
	return strings.ReplaceAll(caseID, "/", "__")
}

func tailLines(input string, maxLines int) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(input, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}

// WorkRootName returns the timestamped run directory name used to isolate
// one run's artifacts from another's.
func WorkRootName(now time.Time) string {
	return "testgen-" + now.Format("0102-150405")
}
