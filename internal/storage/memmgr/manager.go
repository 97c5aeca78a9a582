// Package memmgr partitions one durable Memory into independently growable
// regions identified by small integer tags.
//
// Layout of the underlying memory:
//
//	page 0           header: magic "VMM", version, bucket size, per-region
//	                 page counts, bucket ownership table
//	page 1..         buckets of bucketPages pages each
//
// A region is the concatenation of the buckets it owns, in allocation order.
// Buckets are allocated sequentially and never freed, so ownership is fully
// described by the table and a region keeps its bytes across restarts.
package memmgr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/okian/vendorhub/internal/storage/memory"
)

// MaxRegions is the number of usable tags; tag 255 marks a free bucket.
const MaxRegions = 255

// MaxBucketPages is the largest bucket size a layout accepts.
const MaxBucketPages = 1 << 15

const (
	layoutVersion      = 1
	freeTag            = 0xFF
	defaultBucketPages = 16

	headerBytes     = memory.PageSize
	offVersion      = 3
	offBucketPages  = 4
	offRegionPages  = 8
	offBucketTable  = offRegionPages + MaxRegions*8
	maxBuckets      = headerBytes - offBucketTable
	regionPagesSize = 8
)

var magic = []byte("VMM")

// Manager hands out Regions of a single Memory.
type Manager struct {
	mu          sync.RWMutex
	mem         memory.Memory
	bucketPages int64
	allocated   int
	regionPages [MaxRegions]int64
	buckets     [MaxRegions][]uint16
	regions     map[uint8]*Region
}

// RegionInfo describes the allocation state of one region.
type RegionInfo struct {
	Tag     uint8
	Pages   int64
	Buckets int
}

// Init loads the layout stored in mem, or writes a fresh one when mem is empty.
func Init(mem memory.Memory, opts ...Option) (*Manager, error) {
	m := &Manager{
		mem:         mem,
		bucketPages: defaultBucketPages,
		regions:     make(map[uint8]*Region),
	}
	for _, opt := range opts {
		opt(m)
	}

	if mem.Size() == 0 {
		if err := m.format(); err != nil {
			return nil, err
		}
		return m, nil
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) format() error {
	if err := m.mem.Grow(headerBytes / memory.PageSize); err != nil {
		return fmt.Errorf("format header: %w: %w", ErrOutOfSpace, err)
	}

	hdr := make([]byte, headerBytes)
	copy(hdr, magic)
	hdr[offVersion] = layoutVersion
	binary.LittleEndian.PutUint16(hdr[offBucketPages:], uint16(m.bucketPages))
	for i := offBucketTable; i < headerBytes; i++ {
		hdr[i] = freeTag
	}
	if _, err := m.mem.WriteAt(hdr, 0); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return m.mem.Sync()
}

func (m *Manager) load() error {
	hdr := make([]byte, headerBytes)
	if _, err := m.mem.ReadAt(hdr, 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(hdr[:len(magic)], magic) {
		return fmt.Errorf("%w: bad magic %q", ErrBadHeader, hdr[:len(magic)])
	}
	if hdr[offVersion] != layoutVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadHeader, hdr[offVersion])
	}
	m.bucketPages = int64(binary.LittleEndian.Uint16(hdr[offBucketPages:]))
	if m.bucketPages == 0 {
		return fmt.Errorf("%w: zero bucket size", ErrBadHeader)
	}

	for tag := 0; tag < MaxRegions; tag++ {
		off := offRegionPages + tag*regionPagesSize
		m.regionPages[tag] = int64(binary.LittleEndian.Uint64(hdr[off:]))
	}
	for b := 0; b < maxBuckets; b++ {
		owner := hdr[offBucketTable+b]
		if owner == freeTag {
			continue
		}
		m.buckets[owner] = append(m.buckets[owner], uint16(b))
		m.allocated = b + 1
	}

	// A region size is written after its buckets, so a torn grow can only
	// leave spare buckets, never a size without backing.
	for tag := 0; tag < MaxRegions; tag++ {
		if m.regionPages[tag] > int64(len(m.buckets[tag]))*m.bucketPages {
			return fmt.Errorf("%w: region %d claims %d pages with %d buckets",
				ErrBadHeader, tag, m.regionPages[tag], len(m.buckets[tag]))
		}
	}
	return nil
}

// Region returns the region for tag. Repeated calls return the same handle.
func (m *Manager) Region(tag uint8) (*Region, error) {
	if tag >= MaxRegions {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTag, tag)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.regions[tag]; ok {
		return r, nil
	}
	r := &Region{mgr: m, tag: tag}
	m.regions[tag] = r
	return r, nil
}

// Regions reports every region that owns at least one bucket.
func (m *Manager) Regions() []RegionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RegionInfo
	for tag := 0; tag < MaxRegions; tag++ {
		if len(m.buckets[tag]) == 0 {
			continue
		}
		out = append(out, RegionInfo{
			Tag:     uint8(tag),
			Pages:   m.regionPages[tag],
			Buckets: len(m.buckets[tag]),
		})
	}
	return out
}

// BucketPages returns the bucket size in pages.
func (m *Manager) BucketPages() int64 {
	return m.bucketPages
}

// Memory returns the underlying memory.
func (m *Manager) Memory() memory.Memory {
	return m.mem
}

func (m *Manager) bucketBytes() int64 {
	return m.bucketPages * memory.PageSize
}

// grow must be called with m.mu held for writing.
func (m *Manager) grow(tag uint8, pages int64) error {
	need := m.regionPages[tag] + pages
	for int64(len(m.buckets[tag]))*m.bucketPages < need {
		if m.allocated >= maxBuckets {
			return fmt.Errorf("region %d: %w: bucket table full", tag, ErrOutOfSpace)
		}
		if err := m.mem.Grow(m.bucketPages); err != nil {
			return fmt.Errorf("region %d: %w: %w", tag, ErrOutOfSpace, err)
		}
		b := m.allocated
		if _, err := m.mem.WriteAt([]byte{tag}, int64(offBucketTable+b)); err != nil {
			return fmt.Errorf("record bucket owner: %w", err)
		}
		m.allocated++
		m.buckets[tag] = append(m.buckets[tag], uint16(b))
	}

	var buf [regionPagesSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(need))
	if _, err := m.mem.WriteAt(buf[:], int64(offRegionPages+int(tag)*regionPagesSize)); err != nil {
		return fmt.Errorf("record region size: %w", err)
	}
	m.regionPages[tag] = need
	return nil
}

// transfer moves bytes between p and the region at off. Callers hold m.mu.
func (m *Manager) transfer(tag uint8, p []byte, off int64, write bool) (int, error) {
	size := m.regionPages[tag] * memory.PageSize
	if off < 0 || off+int64(len(p)) > size {
		return 0, memory.ErrOutOfBounds
	}

	bb := m.bucketBytes()
	done := 0
	for done < len(p) {
		idx := off / bb
		within := off % bb
		n := int64(len(p) - done)
		if rest := bb - within; n > rest {
			n = rest
		}
		phys := headerBytes + int64(m.buckets[tag][idx])*bb + within

		var err error
		if write {
			_, err = m.mem.WriteAt(p[done:done+int(n)], phys)
		} else {
			_, err = m.mem.ReadAt(p[done:done+int(n)], phys)
		}
		if err != nil {
			return done, err
		}
		done += int(n)
		off += n
	}
	return done, nil
}
