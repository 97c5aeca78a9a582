package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed   = errors.New("store closed")
	ErrReadOnly = errors.New("write in read-only transaction")
)
