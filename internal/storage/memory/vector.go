package memory

import (
	"fmt"
	"sync"
)

// Vector is a Memory backed by a byte slice. Contents live as long as the
// value does; it is used for tests and the ephemeral server mode.
type Vector struct {
	mu       sync.RWMutex
	data     []byte
	maxPages int64
}

// NewVector creates an empty in-process memory.
func NewVector(opts ...Option) *Vector {
	c := newConfig(opts)
	return &Vector{maxPages: c.maxPages}
}

// NewVectorFrom creates a memory holding a copy of data, padded to a page
// boundary. It is used to restore images.
func NewVectorFrom(data []byte, opts ...Option) *Vector {
	v := NewVector(opts...)
	pages := (int64(len(data)) + PageSize - 1) / PageSize
	v.data = make([]byte, pages*PageSize)
	copy(v.data, data)
	return v
}

// Size implements Memory.
func (v *Vector) Size() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return int64(len(v.data))
}

// Grow implements Memory.
func (v *Vector) Grow(pages int64) error {
	if pages < 0 {
		return fmt.Errorf("grow by %d pages: %w", pages, ErrOutOfBounds)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	current := int64(len(v.data)) / PageSize
	if v.maxPages > 0 && current+pages > v.maxPages {
		return fmt.Errorf("grow to %d pages: %w", current+pages, ErrGrowLimit)
	}
	v.data = append(v.data, make([]byte, pages*PageSize)...)
	return nil
}

// ReadAt implements io.ReaderAt.
func (v *Vector) ReadAt(p []byte, off int64) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !inBounds(off, len(p), int64(len(v.data))) {
		return 0, ErrOutOfBounds
	}
	return copy(p, v.data[off:]), nil
}

// WriteAt implements io.WriterAt.
func (v *Vector) WriteAt(p []byte, off int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !inBounds(off, len(p), int64(len(v.data))) {
		return 0, ErrOutOfBounds
	}
	return copy(v.data[off:], p), nil
}

// Sync implements Memory. Vector memory has nothing to flush.
func (v *Vector) Sync() error { return nil }
