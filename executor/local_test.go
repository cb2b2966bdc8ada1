package executor

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func newTestLocalExecutor() *LocalExecutor {
	return NewLocalExecutor("local-test", ElevateSudo, testLogEntry())
}

func TestLocalExecutor_Execute_Echo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	le := newTestLocalExecutor()
	stdoutSink := newMemSink()

	outcome, err := le.Execute(context.Background(), Request{
		Command: []string{"echo", "hello", "world"},
		Stdout:  stdoutSink,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", outcome.ExitCode)
	}
	lines := stdoutSink.Lines()
	if len(lines) != 1 || lines[0] != "hello world" {
		t.Errorf("stdout sink lines = %v, want [hello world]", lines)
	}
}

func TestLocalExecutor_Execute_NonZeroExitIsNotAnError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	le := newTestLocalExecutor()

	outcome, err := le.Execute(context.Background(), Request{Line: "exit 3"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", outcome.ExitCode)
	}
}

func TestLocalExecutor_Execute_BothStreamsCounted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	le := newTestLocalExecutor()
	stdoutSink := newMemSink()
	stderrSink := newMemSink()

	const n = 50
	script := fmt.Sprintf(
		"i=0; while [ $i -lt %d ]; do echo out-$i; echo err-$i 1>&2; i=$((i+1)); done", n)

	outcome, err := le.Execute(context.Background(), Request{
		Line:   script,
		Stdout: stdoutSink,
		Stderr: stderrSink,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", outcome.ExitCode)
	}

	out := stdoutSink.Lines()
	errs := stderrSink.Lines()
	if len(out) != n || len(errs) != n {
		t.Fatalf("sink counts = %d/%d, want %d/%d", len(out), len(errs), n, n)
	}
	for i := 0; i < n; i++ {
		if out[i] != fmt.Sprintf("out-%d", i) {
			t.Fatalf("stdout out of order at %d: %q", i, out[i])
		}
		if errs[i] != fmt.Sprintf("err-%d", i) {
			t.Fatalf("stderr out of order at %d: %q", i, errs[i])
		}
	}
}

// A command that writes far more to stderr than a pipe buffer holds while
// also writing to stdout only completes if both streams are drained
// concurrently.
func TestLocalExecutor_Execute_LargeStderrDoesNotDeadlock(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	le := newTestLocalExecutor()
	stdoutSink := newMemSink()
	stderrSink := newMemSink()

	// ~1.6 MB of stderr, well past any pipe buffer.
	const n = 20000
	script := fmt.Sprintf(
		"i=0; while [ $i -lt %d ]; do echo 'stderr filler line to overflow the pipe buffer' 1>&2; i=$((i+1)); done; echo finished", n)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcome, err := le.Execute(ctx, Request{
		Line:   script,
		Stdout: stdoutSink,
		Stderr: stderrSink,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcome.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", outcome.ExitCode)
	}
	if got := len(stderrSink.Lines()); got != n {
		t.Errorf("stderr sink received %d lines, want %d", got, n)
	}
	out := stdoutSink.Lines()
	if len(out) != 1 || out[0] != "finished" {
		t.Errorf("stdout sink lines = %v, want [finished]", out)
	}
}

// A single 2 MB output line overflows the scanner's cap. The pump must
// still empty the stream so the command can finish and Execute returns
// instead of wedging on the full pipe.
func TestLocalExecutor_Execute_OversizedLineDoesNotWedge(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	le := newTestLocalExecutor()
	stdoutSink := newMemSink()
	stderrSink := newMemSink()

	script := "head -c 2097152 /dev/zero | tr '\\0' a; echo; echo tail-line"

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcome, err := le.Execute(ctx, Request{
		Line:   script,
		Stdout: stdoutSink,
		Stderr: stderrSink,
	})

	var pumpErr *PumpError
	if !errors.As(err, &pumpErr) {
		t.Fatalf("expected PumpError, got %v", err)
	}
	if pumpErr.Stream != "stdout" {
		t.Errorf("pump error tagged %q, want stdout", pumpErr.Stream)
	}
	if outcome == nil || outcome.ExitCode != 0 {
		t.Errorf("outcome should still carry the exit status, got %+v", outcome)
	}
}

func TestLocalExecutor_Execute_Cancellation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	le := newTestLocalExecutor()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := le.Execute(ctx, Request{Line: "sleep 30"})
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("Execute blocked %v after cancellation", elapsed)
	}
}

// Killing the shell leaves a backgrounded child holding the inherited
// pipe write ends; cancellation must still unblock both pumps.
func TestLocalExecutor_Execute_CancellationWithStrandedChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	le := newTestLocalExecutor()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := le.Execute(ctx, Request{Line: "sleep 30 & wait"})
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("Execute blocked %v after cancellation", elapsed)
	}
}

func TestLocalExecutor_Execute_CommandNotFoundExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	le := newTestLocalExecutor()

	outcome, err := le.Execute(context.Background(), Request{
		Command: []string{"a_very_unlikely_command_xyz123"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// The shell reports 127 for an unknown command; interpreting that is
	// the caller's policy.
	if outcome.ExitCode == 0 {
		t.Errorf("exit code = 0, want non-zero")
	}
}
