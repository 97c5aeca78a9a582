package memmgr

import (
	"github.com/okian/vendorhub/internal/storage/memory"
)

// Region is a virtual Memory carved out of a Manager. Offsets start at zero
// for every region.
type Region struct {
	mgr *Manager
	tag uint8
}

var _ memory.Memory = (*Region)(nil)

// Tag returns the region tag.
func (r *Region) Tag() uint8 { return r.tag }

// Size implements memory.Memory.
func (r *Region) Size() int64 {
	r.mgr.mu.RLock()
	defer r.mgr.mu.RUnlock()
	return r.mgr.regionPages[r.tag] * memory.PageSize
}

// Grow implements memory.Memory. Running out of buckets or substrate space
// returns ErrOutOfSpace.
func (r *Region) Grow(pages int64) error {
	if pages < 0 {
		return memory.ErrOutOfBounds
	}
	r.mgr.mu.Lock()
	defer r.mgr.mu.Unlock()
	return r.mgr.grow(r.tag, pages)
}

// ReadAt implements io.ReaderAt.
func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	r.mgr.mu.RLock()
	defer r.mgr.mu.RUnlock()
	return r.mgr.transfer(r.tag, p, off, false)
}

// WriteAt implements io.WriterAt.
func (r *Region) WriteAt(p []byte, off int64) (int, error) {
	r.mgr.mu.RLock()
	defer r.mgr.mu.RUnlock()
	return r.mgr.transfer(r.tag, p, off, true)
}

// Sync implements memory.Memory.
func (r *Region) Sync() error {
	return r.mgr.mem.Sync()
}
