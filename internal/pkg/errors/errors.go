package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpstream marks failures of a model, embedding or vector backend.
	ErrUpstream = errors.New("upstream failure")
	// ErrInvariant marks persistence results that should be impossible.
	ErrInvariant = errors.New("consistency invariant violated")
)

// Error tags an underlying error with one of the sentinels above plus a
// stable machine-readable code for the HTTP layer.
type Error struct {
	Kind error
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	if e.Kind != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Kind)
	}
	return e.Code
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newf(kind error, code, format string, args ...any) *Error {
	var err error
	if format != "" {
		err = fmt.Errorf(format, args...)
	}
	return &Error{Kind: kind, Code: code, Err: err}
}

func NotFound(code, format string, args ...any) *Error {
	return newf(ErrNotFound, code, format, args...)
}

func Invalid(code, format string, args ...any) *Error {
	return newf(ErrInvalidArgument, code, format, args...)
}

func Invariant(code, format string, args ...any) *Error {
	return newf(ErrInvariant, code, format, args...)
}

func Upstream(code string, err error) *Error {
	return &Error{Kind: ErrUpstream, Code: code, Err: err}
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
