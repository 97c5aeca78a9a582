// Package collection stores one entity kind as an append-only slot log inside
// a memory region, with an in-memory index rebuilt on open.
//
// Inserting appends a slot and then advances the committed count; a crash
// between the two leaves the previous state intact. Without a commit barrier
// the count can reach disk before its slot, so a last committed slot that
// fails its checksum is dropped on open. When a key appears in several
// committed slots the latest one wins.
package collection

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/vendorhub/internal/storage/codec"
	"github.com/okian/vendorhub/internal/storage/memory"
)

// Entry pairs a key with its decoded value.
type Entry[T any] struct {
	Key   uint64
	Value T
}

// Collection is a durable map from uint64 keys to values of T.
type Collection[T any] struct {
	mu        sync.RWMutex
	mem       memory.Memory
	codec     codec.Codec[T]
	index     map[uint64]int64
	keys      []uint64
	committed int64
	barrier   bool
	torn      bool
}

// Open attaches to the collection stored in mem, formatting an empty region.
func Open[T any](mem memory.Memory, c codec.Codec[T], opts ...Option) (*Collection[T], error) {
	cfg := newConfig(opts)
	col := &Collection[T]{
		mem:     mem,
		codec:   c,
		index:   make(map[uint64]int64),
		barrier: cfg.barrier,
	}
	if mem.Size() == 0 {
		if err := col.format(); err != nil {
			return nil, err
		}
	}
	if err := col.load(); err != nil {
		return nil, err
	}
	return col, nil
}

func (c *Collection[T]) format() error {
	if err := c.mem.Grow(1); err != nil {
		return fmt.Errorf("allocate collection: %w", err)
	}
	hdr := make([]byte, headerSize)
	copy(hdr, magic)
	binary.LittleEndian.PutUint16(hdr[offVersion:], formatVersion)
	binary.LittleEndian.PutUint32(hdr[offSlotSize:], slotSize)
	if _, err := c.mem.WriteAt(hdr, 0); err != nil {
		return fmt.Errorf("write collection header: %w", err)
	}
	return nil
}

func (c *Collection[T]) load() error {
	hdr := make([]byte, headerSize)
	if _, err := c.mem.ReadAt(hdr, 0); err != nil {
		return fmt.Errorf("read collection header: %w", err)
	}
	if !bytes.Equal(hdr[:len(magic)], magic) {
		return ErrBadHeader
	}
	if v := binary.LittleEndian.Uint16(hdr[offVersion:]); v != formatVersion {
		return fmt.Errorf("%w: version %d", ErrBadHeader, v)
	}
	if s := binary.LittleEndian.Uint32(hdr[offSlotSize:]); s != slotSize {
		return fmt.Errorf("%w: slot size %d", ErrBadHeader, s)
	}

	committed := int64(binary.LittleEndian.Uint64(hdr[offCommitted:]))
	if committed < 0 || slotOffset(committed) > c.mem.Size() {
		return fmt.Errorf("%w: %d committed slots exceed region", ErrCorrupt, committed)
	}

	buf := make([]byte, slotSize)
	for n := int64(0); n < committed; n++ {
		h, _, err := c.readSlot(n, buf)
		if err != nil {
			if n == committed-1 && errors.Is(err, ErrCorrupt) {
				committed, c.torn = n, true
				break
			}
			return err
		}
		if _, ok := c.index[h.key]; !ok {
			c.keys = append(c.keys, h.key)
		}
		c.index[h.key] = n
	}
	slices.Sort(c.keys)
	c.committed = committed
	return nil
}

// readSlot reads and verifies slot n, returning its header and payload.
func (c *Collection[T]) readSlot(n int64, buf []byte) (slotHeader, []byte, error) {
	if _, err := c.mem.ReadAt(buf[:slotHeaderSize], slotOffset(n)); err != nil {
		return slotHeader{}, nil, fmt.Errorf("read slot %d: %w", n, err)
	}
	h := decodeSlotHeader(buf)
	if h.length > codec.MaxRecordSize {
		return h, nil, fmt.Errorf("%w: slot %d length %d", ErrCorrupt, n, h.length)
	}
	payload := buf[slotHeaderSize : slotHeaderSize+int(h.length)]
	if _, err := c.mem.ReadAt(payload, slotOffset(n)+slotHeaderSize); err != nil {
		return h, nil, fmt.Errorf("read slot %d: %w", n, err)
	}
	if slotChecksum(buf[:slotHeaderSize+int(h.length)]) != h.crc {
		return h, nil, fmt.Errorf("%w: slot %d checksum mismatch", ErrCorrupt, n)
	}
	return h, payload, nil
}

// Insert stores v under key, replacing any previous value.
func (c *Collection[T]) Insert(key uint64, v T) error {
	payload, err := codec.Marshal(c.codec, v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.committed
	end := slotOffset(n + 1)
	if size := c.mem.Size(); end > size {
		pages := (end - size + memory.PageSize - 1) / memory.PageSize
		if err := c.mem.Grow(pages); err != nil {
			return fmt.Errorf("grow collection: %w", err)
		}
	}
	if _, err := c.mem.WriteAt(encodeSlot(key, payload), slotOffset(n)); err != nil {
		return fmt.Errorf("write slot %d: %w", n, err)
	}
	if c.barrier {
		if err := c.mem.Sync(); err != nil {
			return fmt.Errorf("sync slot %d: %w", n, err)
		}
	}

	var cnt [8]byte
	binary.LittleEndian.PutUint64(cnt[:], uint64(n+1))
	if _, err := c.mem.WriteAt(cnt[:], offCommitted); err != nil {
		return fmt.Errorf("commit slot %d: %w", n, err)
	}

	c.committed = n + 1
	if _, ok := c.index[key]; !ok {
		i, _ := slices.BinarySearch(c.keys, key)
		c.keys = slices.Insert(c.keys, i, key)
	}
	c.index[key] = n
	return nil
}

// Get returns the value stored under key.
func (c *Collection[T]) Get(key uint64) (T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.get(key)
}

func (c *Collection[T]) get(key uint64) (T, bool, error) {
	var zero T
	n, ok := c.index[key]
	if !ok {
		return zero, false, nil
	}
	_, payload, err := c.readSlot(n, make([]byte, slotSize))
	if err != nil {
		return zero, false, err
	}
	v, err := codec.Unmarshal(c.codec, payload)
	if err != nil {
		return zero, false, fmt.Errorf("decode key %d: %w", key, err)
	}
	return v, true, nil
}

// Contains reports whether key is present.
func (c *Collection[T]) Contains(key uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[key]
	return ok
}

// Snapshot returns every entry in ascending key order.
func (c *Collection[T]) Snapshot() ([]Entry[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry[T], 0, len(c.keys))
	for _, k := range c.keys {
		v, _, err := c.get(k)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry[T]{Key: k, Value: v})
	}
	return out, nil
}

// Filter returns values matching pred in ascending key order.
func (c *Collection[T]) Filter(pred func(T) bool) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []T
	for _, k := range c.keys {
		v, _, err := c.get(k)
		if err != nil {
			return nil, err
		}
		if pred(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Len returns the number of distinct keys.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// MaxKey returns the largest key, or zero when empty.
func (c *Collection[T]) MaxKey() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.keys) == 0 {
		return 0
	}
	return c.keys[len(c.keys)-1]
}

// Torn reports whether opening dropped a last slot whose write never
// reached the media.
func (c *Collection[T]) Torn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.torn
}

// Slots returns the number of committed slots, superseded ones included.
func (c *Collection[T]) Slots() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.committed
}
