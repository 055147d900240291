package protocol

import (
	"errors"
	"fmt"
)

// ErrNeedMoreData reports that the buffered byte stream does not yet hold a
// complete frame. It is a backpressure signal, not a failure; callers should
// read more bytes from the connection and try again.
var ErrNeedMoreData = errors.New("need more data")

// MalformedError reports input that can never become a valid packet. The
// connection it arrived on must be closed.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed packet: %s", e.Reason)
}

func malformedf(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

// IsMalformed reports whether err is a MalformedError anywhere in its chain.
func IsMalformed(err error) bool {
	var m *MalformedError
	return errors.As(err, &m)
}
