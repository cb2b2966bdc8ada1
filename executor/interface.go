package executor

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// ElevationStrategy selects how a command is rewritten when a Request names
// a user to run as. The strategy is fixed per executor at construction; it
// never varies per request.
type ElevationStrategy string

const (
	// ElevateSudo wraps the command as `sudo -u <user> <tokens...>`.
	ElevateSudo ElevationStrategy = "sudo"
	// ElevateSu wraps the command as `su <user> -c '<line>'`.
	ElevateSu ElevationStrategy = "su"
)

// LineSink receives complete output lines from a stream pump, one call per
// line, in stream order. logsink.Sink is the production implementation.
type LineSink interface {
	Consume(line string) error
}

// Request describes one command execution. Command and Line are two forms
// of the same field: a token vector, or a pre-joined command line. When both
// are set, Command wins.
type Request struct {
	Command []string
	Line    string

	// User, if non-empty, runs the command as that user via the
	// executor's elevation strategy.
	User string
	// Shell, if non-empty, names the shell interpreter the command is
	// wrapped in (or handed to the elevation wrapper via -s).
	Shell string

	// Stdout and Stderr receive the two output streams line by line.
	// Either may be nil, in which case that stream is drained and
	// discarded.
	Stdout LineSink
	Stderr LineSink
}

// Outcome is the result of a completed execution. A non-zero ExitCode is
// data, not an error: whether it aborts anything is the caller's policy.
type Outcome struct {
	// Command is the final composed line submitted to the transport.
	Command string
	// ExitCode is the command's exit status.
	ExitCode int
}

// Executor runs commands against one target. Execute blocks until the
// command finished and both output streams are fully drained.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Outcome, error)
	Logger() *logrus.Entry
	Name() string
}

// Session is the live handle to one running remote command: independent
// input/output/error streams plus start/wait/signal control. *ssh.Session
// satisfies it. A Session is owned by exactly one Execute invocation and is
// never reused.
type Session interface {
	StdinPipe() (io.WriteCloser, error)
	StdoutPipe() (io.Reader, error)
	StderrPipe() (io.Reader, error)
	Start(cmd string) error
	Wait() error
	Signal(sig ssh.Signal) error
	Close() error
}

// SessionOpener creates execution channels against an established remote
// session. connector.Connection is the production implementation; its
// lifetime is owned by the caller, not by the executor.
type SessionOpener interface {
	NewSession(ctx context.Context) (Session, error)
}
