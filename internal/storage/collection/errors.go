package collection

import "errors"

var (
	// ErrCorrupt reports a committed slot whose contents fail validation.
	ErrCorrupt = errors.New("collection corrupt")
	// ErrBadHeader reports a region that does not hold a collection.
	ErrBadHeader = errors.New("collection header mismatch")
)
