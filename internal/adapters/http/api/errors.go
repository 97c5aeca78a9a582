package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrDuplicate   = errors.New("duplicate idempotency key")
	ErrRateLimited = errors.New("rate limited")
	ErrInternal    = errors.New("internal error")
)

// OpError annotates an error with the handler operation and an API kind.
// errors.Is matches both the kind and the wrapped cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

// WrapKind wraps err with op and kind.
func WrapKind(op string, kind, err error) *OpError {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// NewKind returns an OpError with no underlying cause.
func NewKind(op string, kind error) *OpError {
	return &OpError{Op: op, Kind: kind}
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
