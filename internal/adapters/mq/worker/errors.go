package worker

import "errors"

// ErrStopped is delivered to commands still queued when the writer stops.
var ErrStopped = errors.New("writer stopped")
