// Package memory provides the page-granular durable byte space the store is
// built on. A Memory only ever grows; callers partition it (see memmgr) and
// address it with absolute byte offsets.
package memory

import "io"

// PageSize is the growth granularity of every Memory in bytes.
const PageSize = 64 * 1024

// Memory is a growable, randomly addressable byte space.
//
// Reads and writes must stay within [0, Size()); out-of-range access returns
// ErrOutOfBounds and transfers nothing. Implementations must be safe for
// concurrent use.
type Memory interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the current size in bytes, always a multiple of PageSize.
	Size() int64

	// Grow extends the memory by the given number of zero-filled pages.
	Grow(pages int64) error

	// Sync flushes written bytes to durable media.
	Sync() error
}

// Reader returns a reader over the full current contents of m.
func Reader(m Memory) io.Reader {
	return io.NewSectionReader(m, 0, m.Size())
}

func inBounds(off int64, n int, size int64) bool {
	return off >= 0 && off+int64(n) <= size
}
