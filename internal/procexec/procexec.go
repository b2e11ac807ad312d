// Package procexec runs external probing tools under a hard deadline. A
// process that ignores termination can hold the caller for at most the
// configured wait delay past its context deadline.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// process has been killed.
const DefaultWaitDelay = 500 * time.Millisecond

// ErrToolNotFound is returned when the executable is not on PATH.
var ErrToolNotFound = errors.New("tool not found")

// Result is what a finished (or killed) process produced.
type Result struct {
	Output   []byte
	ExitCode int
	Duration time.Duration
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	WaitDelay time.Duration
}

// NewExecRunner returns a runner with the default wait delay.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: DefaultWaitDelay}
}

// Run executes name with args and returns combined output. Output is
// returned even when the process fails, since tools like hping3 report
// useful statistics on a non-zero exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	start := time.Now()
	err = cmd.Run()
	res := Result{
		Output:   buf.Bytes(),
		ExitCode: exitCode(cmd, err),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}
	if err != nil {
		return res, fmt.Errorf("%s failed: %w", name, err)
	}
	return res, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
