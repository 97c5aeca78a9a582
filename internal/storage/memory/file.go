package memory

import (
	"fmt"
	"os"
	"sync"
)

// File is a Memory backed by a single data file. The file is exclusively
// locked for the lifetime of the value so two processes never write the same
// image.
type File struct {
	mu         sync.RWMutex
	f          *os.File
	path       string
	size       int64
	maxPages   int64
	syncWrites bool
	closed     bool
}

// OpenFile opens or creates the data file at path.
func OpenFile(path string, opts ...Option) (*File, error) {
	c := newConfig(opts)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // G304: path is configuration
	if err != nil {
		return nil, fmt.Errorf("open memory file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = unlockFile(f)
		_ = f.Close()
		return nil, fmt.Errorf("stat memory file: %w", err)
	}

	// A crash during Grow can leave a partial page; round up.
	size := st.Size()
	if rem := size % PageSize; rem != 0 {
		size += PageSize - rem
		if err := f.Truncate(size); err != nil {
			_ = unlockFile(f)
			_ = f.Close()
			return nil, fmt.Errorf("align memory file: %w", err)
		}
	}

	return &File{
		f:          f,
		path:       path,
		size:       size,
		maxPages:   c.maxPages,
		syncWrites: c.syncWrites,
	}, nil
}

// Path returns the location of the data file.
func (m *File) Path() string { return m.path }

// Size implements Memory.
func (m *File) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Grow implements Memory.
func (m *File) Grow(pages int64) error {
	if pages < 0 {
		return fmt.Errorf("grow by %d pages: %w", pages, ErrOutOfBounds)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	next := m.size + pages*PageSize
	if m.maxPages > 0 && next/PageSize > m.maxPages {
		return fmt.Errorf("grow to %d pages: %w", next/PageSize, ErrGrowLimit)
	}
	if err := m.f.Truncate(next); err != nil {
		return fmt.Errorf("grow memory file: %w", err)
	}
	m.size = next
	return nil
}

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	if !inBounds(off, len(p), m.size) {
		return 0, ErrOutOfBounds
	}
	return m.f.ReadAt(p, off)
}

// WriteAt implements io.WriterAt.
func (m *File) WriteAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	if !inBounds(off, len(p), m.size) {
		return 0, ErrOutOfBounds
	}
	n, err := m.f.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("write memory file: %w", err)
	}
	if m.syncWrites {
		if err := syncFile(m.f); err != nil {
			return n, fmt.Errorf("sync memory file: %w", err)
		}
	}
	return n, nil
}

// Sync implements Memory.
func (m *File) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return syncFile(m.f)
}

// Close flushes, unlocks and closes the data file.
func (m *File) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	syncErr := syncFile(m.f)
	_ = unlockFile(m.f)
	if err := m.f.Close(); err != nil {
		return fmt.Errorf("close memory file: %w", err)
	}
	return syncErr
}
