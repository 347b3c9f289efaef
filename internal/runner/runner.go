// Package runner spawns external command-line tools and streams their output line by line.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"time"
)

var (
	// ErrNotFound is returned when the executable does not exist.
	ErrNotFound = errors.New("executable not found")
	// ErrTimeout is returned when a call exceeds the runner's timeout.
	ErrTimeout = errors.New("command timed out")
)

// maxLineBytes bounds a single stdout line; pdftotext can emit very long lines for dense pages.
const maxLineBytes = 4 << 20

// Runner runs an external command to completion.
// onLine is called for every stdout line in order; it may be nil.
// A non-zero exit returns the exit code with a nil error. Spawn failures,
// timeouts and cancellation return an error.
type Runner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) (int, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	timeout time.Duration
}

// NewExecRunner returns a runner that kills each command after timeout.
// A zero timeout disables the per-call bound.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{timeout: timeout}
}

// Run executes name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (int, error) {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(callCtx, name, args...)
	cmd.WaitDelay = time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe for %s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return -1, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return -1, fmt.Errorf("failed to start %s: %w", name, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Keep the child from blocking on a full pipe so Wait can return.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return -1, fmt.Errorf("%s after %s: %w", name, r.timeout, ErrTimeout)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("%s: %w", name, waitErr)
	}
	if scanErr != nil {
		return 0, fmt.Errorf("reading %s output: %w", name, scanErr)
	}
	return 0, nil
}
