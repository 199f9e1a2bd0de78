package pkg

import (
	"errors"
	"fmt"
)

var ErrSuperseded = errors.New("dashboard load superseded by a newer request")

// TransportError is returned when the request could not be completed or
// upstream answered with a non success status. StatusCode is zero when no
// response was received.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFoundError means upstream does not know the requested country.
type NotFoundError struct {
	Country string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("country %q not found", e.Country)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
