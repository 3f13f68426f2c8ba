package transport

import (
	"errors"
	"fmt"
)

// ErrStatusUnavailable is wrapped by the TransportError returned from
// FetchStatus when the simulation does not serve the status endpoint.
var ErrStatusUnavailable = errors.New("status endpoint unavailable")

// TransportError covers connection failures, timeouts and non-success HTTP
// statuses.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: http %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a malformed or schema-mismatched payload.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: parse payload: %v", e.Op, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// ProtocolError reports a well-formed payload that breaks the exchange
// contract, such as an empty drop zone list.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("%s: protocol: %s", e.Op, e.Reason) }
