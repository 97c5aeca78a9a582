package codec

import "errors"

// Sentinel kinds for codec errors.
var (
	ErrRecordTooLarge = errors.New("encoded record exceeds maximum size")
	ErrMalformed      = errors.New("malformed record")
)
