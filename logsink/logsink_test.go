package logsink

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// countingCloser records how many times Close ran.
type countingCloser struct {
	bytes.Buffer
	mu     sync.Mutex
	closes int
}

func (c *countingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

// failingWriter fails every write after the first n successes.
type failingWriter struct {
	remaining int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.remaining <= 0 {
		return 0, errors.New("disk full")
	}
	f.remaining--
	return len(p), nil
}

func (f *failingWriter) Close() error { return nil }

func TestSinkConsumeWritesAtFixedSeverity(t *testing.T) {
	cc := &countingCloser{}
	s := NewWriter("test", cc, logrus.ErrorLevel)

	if err := s.Consume("boom on stderr"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	out := cc.String()
	if !strings.Contains(out, "boom on stderr") {
		t.Errorf("sink output missing line, got %q", out)
	}
	if !strings.Contains(out, "[ERRO") {
		t.Errorf("sink output missing error severity tag, got %q", out)
	}
}

func TestSinkCloseRunsExactlyOnce(t *testing.T) {
	cc := &countingCloser{}
	s := NewWriter("test", cc, logrus.InfoLevel)

	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("Close #%d failed: %v", i+1, err)
		}
	}
	if cc.closes != 1 {
		t.Errorf("destination closed %d times, want exactly 1", cc.closes)
	}
}

func TestSinkConsumeSurfacesWriteError(t *testing.T) {
	s := NewWriter("broken", &failingWriter{remaining: 1}, logrus.InfoLevel)

	if err := s.Consume("first line fits"); err != nil {
		t.Fatalf("first Consume should succeed: %v", err)
	}
	err := s.Consume("second line does not")
	if err == nil {
		t.Fatal("expected write error from Consume, got nil")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error should carry the underlying cause, got %v", err)
	}
	// A failed write leaves the sink usable; subsequent failures are
	// reported independently rather than latched.
	if err := s.Consume("third"); err == nil {
		t.Error("expected write error on third line, got nil")
	}
}

func TestNewFileSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eth0.log")

	s, err := NewFile(path, logrus.InfoLevel)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if err := s.Consume("ping 10.0.0.2"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read sink file: %v", err)
	}
	if !strings.Contains(string(content), "ping 10.0.0.2") {
		t.Errorf("sink file missing line, got %q", string(content))
	}
}
