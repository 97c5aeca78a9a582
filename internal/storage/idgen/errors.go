package idgen

import "errors"

// Sentinel kinds for identifier generator errors.
var (
	ErrExhausted = errors.New("identifier space exhausted")
	ErrBadHeader = errors.New("identifier counter header corrupt")
)
