// Package runner executes external probe commands.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/util"
)

// DefaultStreamTimeout bounds discovery-style streamed probes.
const DefaultStreamTimeout = 30 * time.Second

// errAbandoned marks a killed process whose Wait never returned.
var errAbandoned = errors.New("process did not exit after kill")

// Command is an executable name plus its arguments. No shell is involved.
type Command struct {
	Name string
	Args []string
}

// Cmd builds a Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String renders the command line for logs and reports.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Executor is the contract probes rely on.
type Executor interface {
	Available(name string) bool
	RunCaptured(ctx context.Context, cmd Command) model.ProbeOutput
	RunStreamed(ctx context.Context, cmd Command, onLine func(string), timeout time.Duration) model.ProbeOutput
}

// Runner runs commands on the local host.
type Runner struct {
	clock     clock.Clock
	waitDelay time.Duration
	lookPath  func(string) (string, error)
}

// New creates a runner backed by the wall clock.
func New() *Runner {
	return NewWithClock(clock.New())
}

// NewWithClock creates a runner whose streamed timeouts use clk.
func NewWithClock(clk clock.Clock) *Runner {
	return &Runner{
		clock:     clk,
		waitDelay: 2 * time.Second,
		lookPath:  exec.LookPath,
	}
}

// Available reports whether name resolves on the search path.
func (r *Runner) Available(name string) bool {
	_, err := r.lookPath(name)
	return err == nil
}

// RunCaptured runs cmd to completion and returns its stdout and stderr.
// A non-zero exit status is reported through ExitCode, not as a failure.
func (r *Runner) RunCaptured(ctx context.Context, cmd Command) model.ProbeOutput {
	out := model.ProbeOutput{Command: cmd.String()}
	start := time.Now()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	setProcessGroup(c)
	c.Cancel = func() error { return killGroup(c) }
	c.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	util.Debug("Running %s", out.Command)
	err := c.Run()
	out.Duration = time.Since(start)

	if status, ok := startFailure(err); ok {
		out.Status = status
		out.ExitCode = -1
		util.Debug("Could not start %s: %v", cmd.Name, err)
		return out
	}

	out.Stdout = stdout.String()
	out.Stderr = stderr.String()
	out.Text = out.Stdout
	out.ExitCode = exitCode(c, err)

	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Status = model.StatusTimedOut
	case ctx.Err() != nil:
		out.Status = model.StatusCancelled
	case err == nil:
		out.Status = model.StatusSuccess
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.Status = model.StatusSuccess
		} else {
			out.Status = model.StatusProcessError
		}
	}

	return out
}

// RunStreamed runs cmd with stdout and stderr merged, calling onLine for
// each complete line as it arrives. The process group is killed when
// timeout elapses (zero means no limit) or ctx is cancelled; the text
// captured up to that point is still returned.
func (r *Runner) RunStreamed(ctx context.Context, cmd Command, onLine func(string), timeout time.Duration) model.ProbeOutput {
	out := model.ProbeOutput{Command: cmd.String()}
	start := time.Now()

	w := newLineWriter(onLine)
	c := exec.Command(cmd.Name, cmd.Args...)
	setProcessGroup(c)
	c.Stdout = w
	c.Stderr = w
	c.WaitDelay = r.waitDelay

	util.Debug("Streaming %s (timeout %s)", out.Command, timeout)
	if err := c.Start(); err != nil {
		out.Status = model.StatusProcessError
		if status, ok := startFailure(err); ok {
			out.Status = status
		}
		out.ExitCode = -1
		out.Duration = time.Since(start)
		util.Debug("Could not start %s: %v", cmd.Name, err)
		return out
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Wait()
	}()

	var timerC <-chan time.Time
	if timeout > 0 {
		timer := r.clock.Timer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	var err error
	out.Status = model.StatusSuccess
	select {
	case err = <-done:
	case <-timerC:
		out.Status = model.StatusTimedOut
		err = r.terminate(c, done)
	case <-ctx.Done():
		out.Status = model.StatusCancelled
		err = r.terminate(c, done)
	}

	w.Flush()
	out.Text = w.String()
	out.Stdout = out.Text
	out.ExitCode = exitCode(c, err)
	out.Duration = time.Since(start)

	if out.Terminated() {
		util.Info("%s stopped early (%s) after %s", cmd.Name, out.Status, out.Duration.Round(time.Millisecond))
	}

	return out
}

// terminate kills the process group and waits a bounded time for Wait.
func (r *Runner) terminate(c *exec.Cmd, done <-chan error) error {
	if err := killGroup(c); err != nil {
		util.Warn("Failed to kill %s: %v", c.Path, err)
	}
	select {
	case err := <-done:
		return err
	case <-time.After(2 * r.waitDelay):
		util.Warn("%s did not exit after kill", c.Path)
		return errAbandoned
	}
}

func startFailure(err error) (model.OutputStatus, bool) {
	if err == nil {
		return "", false
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return model.StatusCommandNotFound, true
	}
	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(err, &execErr) || errors.As(err, &pathErr) {
		return model.StatusProcessError, true
	}
	return "", false
}

func exitCode(c *exec.Cmd, err error) int {
	if errors.Is(err, errAbandoned) {
		return -1
	}
	if c.ProcessState != nil {
		return c.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
