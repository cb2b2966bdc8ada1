package executor

import (
	"fmt"

	"github.com/pkg/errors"
)

// TransportError reports that the execution channel itself failed: the
// session could not be opened, the command could not be submitted, or the
// transport broke mid-stream. It is always fatal for the invocation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SinkError reports that a log sink could not accept a line. It is isolated
// to the stream feeding that sink; the sibling stream keeps draining.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s failure: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// PumpError reports an I/O failure in one stream pump, tagged with the
// stream it was draining. It is raised only after both pumps have been
// joined.
type PumpError struct {
	Stream string
	Err    error
}

func (e *PumpError) Error() string {
	return fmt.Sprintf("%s pump failure: %v", e.Stream, e.Err)
}

func (e *PumpError) Unwrap() error { return e.Err }

// IsTransport reports whether err originated in the transport layer.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
