package memory

import "errors"

// Sentinel kinds for memory errors.
var (
	ErrOutOfBounds = errors.New("memory access out of bounds")
	ErrGrowLimit   = errors.New("memory grow limit reached")
	ErrClosed      = errors.New("memory closed")
	ErrLocked      = errors.New("memory file locked by another process")
)
