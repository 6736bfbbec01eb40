package api

import (
	"errors"
	"fmt"
)

// ErrRequest is matched by every failure to reach the remote API or to get
// a success status back from it.
var ErrRequest = errors.New("request failed")

// Error is a non-success response from the remote API.
type Error struct {
	StatusCode int
	Message    string
}

// Error returns the server supplied message, or the HTTP status when the
// body carried none.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Is reports ErrRequest so callers can treat HTTP and network faults alike.
func (e *Error) Is(target error) bool {
	return target == ErrRequest
}

// transportError wraps a network level fault.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

func (e *transportError) Is(target error) bool { return target == ErrRequest }
