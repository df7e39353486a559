package services

import (
	"errors"
	"fmt"
)

// Validation failures all surface to the caller as a uniform bad
// request, but each kind keeps a distinct user-facing message.
type ErrKind string

const (
	ErrMissingField ErrKind = "missing-field"
	ErrBadReference ErrKind = "reference-not-found"
	ErrUnparseable  ErrKind = "value-not-parseable"
	ErrDomain       ErrKind = "domain-invalid"
	ErrConflict     ErrKind = "conflict"
)

type RequestError struct {
	Kind ErrKind
	Msg  string
}

func (e *RequestError) Error() string { return e.Msg }

func reqErr(kind ErrKind, format string, args ...any) *RequestError {
	return &RequestError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// AsRequestError unwraps err into a RequestError if it is one.
func AsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
