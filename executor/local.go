package executor

import (
	"context"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/moselab/netbed/common"
)

const defaultLocalShell = "/bin/sh"

// LocalExecutor runs commands as child processes on the controller host.
type LocalExecutor struct {
	name     string
	strategy ElevationStrategy
	log      *logrus.Entry
}

var _ Executor = (*LocalExecutor)(nil)

// NewLocalExecutor creates an executor for local process execution. The
// logger handle is owned by the executor for its lifetime.
func NewLocalExecutor(name string, strategy ElevationStrategy, log *logrus.Entry) *LocalExecutor {
	return &LocalExecutor{
		name:     name,
		strategy: strategy,
		log:      log.WithField(common.LogFieldExecutor, name),
	}
}

func (e *LocalExecutor) Name() string {
	return e.name
}

func (e *LocalExecutor) Logger() *logrus.Entry {
	return e.log
}

// Execute composes the command line, runs it through the local shell, and
// blocks until the process exited and both streams are drained. Standard
// input is never wired up.
func (e *LocalExecutor) Execute(ctx context.Context, req Request) (*Outcome, error) {
	line, err := Compose(req, e.strategy)
	if err != nil {
		return nil, err
	}
	e.log.WithField(common.LogFieldCommand, line).Debug("executing local command")

	// The transport contract is a single command line, so the local
	// variant hands it to a shell the same way the remote side would.
	cmd := exec.CommandContext(ctx, defaultLocalShell, "-c", line)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to get stdout pipe")}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to get stderr pipe")}
	}

	if err := cmd.Start(); err != nil {
		return nil, &TransportError{Err: errors.Wrapf(err, "failed to start command %q", line)}
	}

	// Killing the shell on cancellation is not enough to unblock the
	// pumps: pipeline children inherit the pipe write ends and keep both
	// streams open past the shell's death. The read ends are closed
	// directly so cancellation forces both pumps off their reads.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = stdoutPipe.Close()
			_ = stderrPipe.Close()
		case <-watchDone:
		}
	}()

	// Pipes must be fully read before Wait; drainStreams joins both
	// pumps first.
	drainErr := drainStreams(stdoutPipe, stderrPipe, req, e.log)
	waitErr := cmd.Wait()
	close(watchDone)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Wrap(ctxErr, "command execution cancelled")
	}

	exitCode := 0
	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return nil, &TransportError{Err: errors.Wrapf(waitErr, "failed to run command %q", line)}
		}
		exitCode = exitErr.ExitCode()
	}

	outcome := &Outcome{Command: line, ExitCode: exitCode}
	if drainErr != nil {
		return outcome, drainErr
	}
	return outcome, nil
}
