package executor

import (
	"bufio"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/moselab/netbed/common"
)

const (
	pumpInitialBuf = 64 * 1024
	pumpMaxLine    = 1024 * 1024
)

// pump drains one output stream line by line into its sink, in stream
// order, until end-of-stream. A sink write failure is remembered but does
// not stop the drain: the stream must still be emptied or the process on
// the far end stalls once its buffer fills.
func pump(stream string, r io.Reader, sink LineSink, log *logrus.Entry) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, pumpInitialBuf), pumpMaxLine)

	var sinkErr error
	for scanner.Scan() {
		if sink == nil {
			continue
		}
		if err := sink.Consume(scanner.Text()); err != nil {
			if sinkErr == nil {
				sinkErr = &SinkError{Sink: stream, Err: err}
				log.WithField(common.LogFieldStream, stream).
					Warnf("sink rejected line, draining remainder: %v", err)
			}
			sink = nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Scanning gave up (oversized line, mid-stream read error) but
		// the stream must still be emptied: leaving bytes in the pipe
		// stalls the process and the sibling pump never sees EOF.
		_, _ = io.Copy(io.Discard, r)
		return &PumpError{Stream: stream, Err: errors.Wrap(err, "stream read failed")}
	}
	if sinkErr != nil {
		return &PumpError{Stream: stream, Err: sinkErr}
	}
	return nil
}

// drainStreams runs the two stream pumps for one invocation. Both pumps
// start together and are joined together, unconditionally: starting one and
// waiting on it before starting the other lets the unread stream's buffer
// fill and deadlocks the remote process. The first failure from either pump
// is returned, with stdout checked first; relative ordering between the two
// streams is never guaranteed.
func drainStreams(stdout, stderr io.Reader, req Request, log *logrus.Entry) error {
	var wg sync.WaitGroup
	var outErr, errErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		outErr = pump(common.StdoutStream, stdout, req.Stdout, log)
	}()
	go func() {
		defer wg.Done()
		errErr = pump(common.StderrStream, stderr, req.Stderr, log)
	}()
	wg.Wait()

	if outErr != nil {
		return outErr
	}
	return errErr
}
