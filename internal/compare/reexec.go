package compare

import (
	"context"
	"time"

	"github.com/sycomp/sytest/internal/invoker"
)

// ReExec judges equivalence by executing the produced artifact and the
// reference artifact and comparing their observable results (exit code and
// stdout). Used when the backend profile cross-validates ARM output against
// an x86 reference binary instead of a fixed golden file.
type ReExec struct {
	Invoker *invoker.Invoker
	// ActualRunner is the argv prefix used to execute the actual artifact,
	// e.g. a qemu-arm emulator. Empty runs the artifact directly.
	ActualRunner []string
	// ReferenceRunner is the argv prefix for the reference artifact.
	ReferenceRunner []string
	// Stdin is the case's input file, fed identically to both executions.
	Stdin   string
	Timeout time.Duration
}

// Name identifies the rule in reports and manifests.
func (ReExec) Name() string { return "reexec" }

// Compare runs both artifacts and requires matching exit codes and stdout.
func (r ReExec) Compare(ctx context.Context, actual, reference string) Verdict {
	if reference == "" {
		return skipped("no reference artifact to execute")
	}

	actualRes, err := r.execute(ctx, r.ActualRunner, actual)
	if err != nil {
		return errored("execute actual artifact: %v", err)
	}
	refRes, err := r.execute(ctx, r.ReferenceRunner, reference)
	if err != nil {
		return errored("execute reference artifact: %v", err)
	}
	if actualRes.TimedOut {
		return errored("actual artifact timed out after %s", r.Timeout)
	}
	if refRes.TimedOut {
		return errored("reference artifact timed out after %s", r.Timeout)
	}

	if actualRes.ExitCode != refRes.ExitCode {
		return fail("exit code mismatch: got %d, reference %d", actualRes.ExitCode, refRes.ExitCode)
	}
	gotOut := normalize(actualRes.Stdout)
	refOut := normalize(refRes.Stdout)
	if gotOut != refOut {
		line, got, want := firstDiff(gotOut, refOut)
		return fail("stdout mismatch at line %d: got %q, reference %q", line, got, want)
	}
	return pass()
}

func (r ReExec) execute(ctx context.Context, runner []string, artifact string) (invoker.Result, error) {
	argv := append(append([]string{}, runner...), artifact)
	return r.Invoker.Invoke(ctx, invoker.Spec{
		Path:    argv[0],
		Args:    argv[1:],
		Stdin:   r.Stdin,
		Timeout: r.Timeout,
	})
}
