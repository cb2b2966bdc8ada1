package executor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/moselab/netbed/common"
)

// SSHExecutor runs commands on a remote host over an already-established
// SSH connection. The connection's lifetime is owned by the caller; the
// executor only opens one session per Execute invocation on top of it.
//
// Elevation requires passwordless sudo/su on the remote side: standard
// input is closed immediately after submission, so a password prompt would
// hang until the context deadline.
type SSHExecutor struct {
	name     string
	sessions SessionOpener
	strategy ElevationStrategy
	log      *logrus.Entry

	// mu serializes session creation. Overlapping Execute calls on one
	// transport are not assumed safe by the transport contract.
	mu sync.Mutex
}

var _ Executor = (*SSHExecutor)(nil)

// NewSSHExecutor creates an executor bound to the given session opener and
// elevation strategy.
func NewSSHExecutor(name string, sessions SessionOpener, strategy ElevationStrategy, log *logrus.Entry) (*SSHExecutor, error) {
	if sessions == nil {
		return nil, errors.New("session opener cannot be nil for ssh executor")
	}
	if log == nil {
		return nil, errors.New("logger cannot be nil for ssh executor")
	}
	return &SSHExecutor{
		name:     name,
		sessions: sessions,
		strategy: strategy,
		log:      log.WithField(common.LogFieldExecutor, name),
	}, nil
}

func (e *SSHExecutor) Name() string {
	return e.name
}

func (e *SSHExecutor) Logger() *logrus.Entry {
	return e.log
}

// Execute composes the final command line, opens one execution channel,
// submits the command with stdin closed, drains both output streams
// concurrently, and blocks until the command finished and both pumps
// joined. Cancelling ctx signals the remote command and closes the channel,
// which unblocks both pumps.
func (e *SSHExecutor) Execute(ctx context.Context, req Request) (*Outcome, error) {
	line, err := Compose(req, e.strategy)
	if err != nil {
		return nil, err
	}
	e.log.WithField(common.LogFieldCommand, line).Debug("executing remote command")

	e.mu.Lock()
	sess, err := e.sessions.NewSession(ctx)
	e.mu.Unlock()
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to open execution channel")}
	}
	defer sess.Close()

	stdinPipe, err := sess.StdinPipe()
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to get stdin pipe")}
	}
	stdoutPipe, err := sess.StdoutPipe()
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to get stdout pipe")}
	}
	stderrPipe, err := sess.StderrPipe()
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "failed to get stderr pipe")}
	}

	if err := sess.Start(line); err != nil {
		return nil, &TransportError{Err: errors.Wrapf(err, "failed to start command %q", line)}
	}

	// No interactive input, ever.
	_ = stdinPipe.Close()

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = sess.Signal(ssh.SIGINT)
			_ = sess.Close()
		case <-watchDone:
		}
	}()

	drainErr := drainStreams(stdoutPipe, stderrPipe, req, e.log)
	waitErr := sess.Wait()
	close(watchDone)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Wrap(ctxErr, "command execution cancelled")
	}

	exitCode := 0
	if waitErr != nil {
		exitErr, ok := waitErr.(*ssh.ExitError)
		if !ok {
			return nil, &TransportError{Err: errors.Wrapf(waitErr, "transport failed while waiting for command %q", line)}
		}
		exitCode = exitErr.ExitStatus()
	}

	outcome := &Outcome{Command: line, ExitCode: exitCode}
	if drainErr != nil {
		return outcome, drainErr
	}
	return outcome, nil
}
