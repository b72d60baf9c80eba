package api

import (
	"fmt"
)

// HTTPError is returned when the API answers with a non-2xx status.
// Body is the raw response text, surfaced verbatim to the user.
// Truncated is set when the body was longer than the client keeps.
type HTTPError struct {
	StatusCode int
	Body       string
	Truncated  bool
}

func (e *HTTPError) Error() string {
	if e.Truncated {
		return fmt.Sprintf("api: HTTP %d: %s (truncated)", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps a failure to complete the request (DNS, connect, timeout, reset).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is returned when a 2xx response is not a JSON object.
type DecodeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("api: HTTP %d with undecodable body: %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
