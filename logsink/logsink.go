// Package logsink binds a log destination to a fixed severity. A Sink
// receives complete lines from a stream pump and writes each one at the
// sink's severity; it guarantees the destination is flushed and released
// exactly once, no matter how the consuming loop exits.
package logsink

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/moselab/netbed/logger"
)

// Sink is a scoped log destination with a fixed severity.
type Sink struct {
	name  string
	level logrus.Level
	out   io.WriteCloser
	ew    *errorWriter
	log   *logrus.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewFile opens (or creates, appending) the file at path as a sink.
func NewFile(path string, level logrus.Level) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sink file %s", path)
	}
	return NewWriter(path, f, level), nil
}

// NewWriter wraps an arbitrary destination as a sink. The sink takes
// ownership of w and closes it in Close.
func NewWriter(name string, w io.WriteCloser, level logrus.Level) *Sink {
	ew := &errorWriter{w: w}

	l := logrus.New()
	l.SetOutput(ew)
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logger.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		NoColors:        true,
		ShowAllLevels:   true,
		DisableCaller:   true,
	})

	return &Sink{
		name:  name,
		level: level,
		out:   w,
		ew:    ew,
		log:   l,
	}
}

// Name identifies the sink in errors and log fields.
func (s *Sink) Name() string {
	return s.name
}

// Level returns the fixed severity every consumed line is written at.
func (s *Sink) Level() logrus.Level {
	return s.level
}

// Consume writes one line to the destination at the sink's severity.
// A write failure is returned but leaves the sink usable: the caller
// decides whether to keep consuming.
func (s *Sink) Consume(line string) error {
	s.log.Log(s.level, line)
	if err := s.ew.take(); err != nil {
		return errors.Wrapf(err, "sink %s failed to write line", s.name)
	}
	return nil
}

// Close flushes and releases the destination. It is safe to call multiple
// times and from any exit path; the release runs exactly once.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		if f, ok := s.out.(*os.File); ok {
			if err := f.Sync(); err != nil {
				s.closeErr = errors.Wrapf(err, "failed to sync sink %s", s.name)
			}
		}
		if err := s.out.Close(); err != nil && s.closeErr == nil {
			s.closeErr = errors.Wrapf(err, "failed to close sink %s", s.name)
		}
	})
	return s.closeErr
}

// errorWriter captures the first write error from the underlying
// destination, since logrus does not surface them to the caller.
type errorWriter struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

func (ew *errorWriter) Write(p []byte) (int, error) {
	n, err := ew.w.Write(p)
	if err != nil {
		ew.mu.Lock()
		if ew.err == nil {
			ew.err = err
		}
		ew.mu.Unlock()
	}
	return n, err
}

func (ew *errorWriter) take() error {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	err := ew.err
	ew.err = nil
	return err
}
