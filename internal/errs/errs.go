// Package errs holds the error taxonomy shared by the store, the remote
// client and the sync controller. Every error crossing a package boundary
// matches exactly one kind with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork     = errors.New("network error")
	ErrDecode      = errors.New("decode error")
	ErrEncode      = errors.New("encode error")
	ErrPersistence = errors.New("persistence error")
	ErrQuery       = errors.New("query error")
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
)

// Error tags a cause with its kind and the operation that failed.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// E wraps err as kind. A nil err yields a bare kind error.
func E(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Validation builds a validation error for field.
func Validation(op, format string, args ...any) *Error {
	return E(ErrValidation, op, fmt.Errorf(format, args...))
}
