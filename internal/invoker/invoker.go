package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultOutputCap bounds captured stdout/stderr per stream.
const DefaultOutputCap = 1 << 20

// waitDelay is the grace period between cancelling a process and forcibly
// reaping it.
const waitDelay = 2 * time.Second

// Spec describes a single external tool invocation.
type Spec struct {
	Path    string
	Args    []string
	Dir     string
	Stdin   string // path of a file fed to stdin, empty for none
	Timeout time.Duration
	Env     []string
}

// Result captures everything observed from one tool invocation. A non-zero
// exit code is recorded here, never surfaced as an error.
type Result struct {
	ExitCode        int
	Stdout          string
	Stderr          string
	StdoutTruncated bool
	StderrTruncated bool
	TimedOut        bool
	Duration        time.Duration
}

// LaunchError indicates the process could not be started at all (binary
// missing, not executable, unreadable stdin file). It is distinct from a
// tool that ran and reported failure.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %q: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Options configure an Invoker.
type Options struct {
	OutputCap int
	Now       func() time.Time
}

// Invoker runs external tools with bounded capture and timeout enforcement.
type Invoker struct {
	opts Options
}

// New creates an Invoker with the supplied options.
func New(opts Options) *Invoker {
	if opts.OutputCap <= 0 {
		opts.OutputCap = DefaultOutputCap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Invoker{opts: opts}
}

// Invoke launches the tool and waits for it to finish or time out. On
// timeout the process is terminated and the result is marked TimedOut with
// exit code -1. The only error return is *LaunchError.
func (iv *Invoker) Invoke(ctx context.Context, spec Spec) (Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.WaitDelay = waitDelay
	if spec.Env != nil {
		cmd.Env = spec.Env
	}

	stdout := newCappedBuffer(iv.opts.OutputCap)
	stderr := newCappedBuffer(iv.opts.OutputCap)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if spec.Stdin != "" {
		in, err := os.Open(spec.Stdin)
		if err != nil {
			return Result{}, &LaunchError{Path: spec.Path, Err: err}
		}
		defer in.Close()
		cmd.Stdin = in
	}

	start := iv.opts.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, &LaunchError{Path: spec.Path, Err: err}
	}

	waitErr := cmd.Wait()
	result := Result{
		ExitCode:        exitCode(waitErr),
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
		Duration:        iv.opts.Now().Sub(start),
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
		result.ExitCode = -1
	}
	return result, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// cappedBuffer accepts writes up to cap bytes and silently discards the
// rest, recording that truncation happened.
type cappedBuffer struct {
	buf       bytes.Buffer
	cap       int
	truncated bool
}

func newCappedBuffer(cap int) *cappedBuffer {
	return &cappedBuffer{cap: cap}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.cap - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
