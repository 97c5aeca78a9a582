// Package idgen implements the durable identifier counter shared by every
// collection. Identifiers start at 1 and are never reused.
package idgen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/okian/vendorhub/internal/storage/memory"
)

const (
	headerSize = 16
	offValue   = 8
)

var magic = []byte("VIDG\x01")

// Generator hands out strictly increasing identifiers.
type Generator struct {
	mu    sync.Mutex
	mem   memory.Memory
	value uint64
}

// Open loads the counter stored in mem, initialising it to zero on first use.
func Open(mem memory.Memory) (*Generator, error) {
	g := &Generator{mem: mem}

	if mem.Size() == 0 {
		if err := mem.Grow(1); err != nil {
			return nil, fmt.Errorf("allocate counter: %w", err)
		}
	}

	hdr := make([]byte, headerSize)
	if _, err := mem.ReadAt(hdr, 0); err != nil {
		return nil, fmt.Errorf("read counter: %w", err)
	}
	switch {
	case bytes.Equal(hdr[:len(magic)], magic):
		g.value = binary.LittleEndian.Uint64(hdr[offValue:])
	case bytes.Equal(hdr, make([]byte, headerSize)):
		copy(hdr, magic)
		if _, err := mem.WriteAt(hdr, 0); err != nil {
			return nil, fmt.Errorf("init counter: %w", err)
		}
	default:
		return nil, ErrBadHeader
	}
	return g, nil
}

// Next persists and returns the next identifier.
func (g *Generator) Next() (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.value == math.MaxUint64 {
		return 0, ErrExhausted
	}
	next := g.value + 1
	if err := g.store(next); err != nil {
		return 0, err
	}
	g.value = next
	return next, nil
}

// Current returns the last issued identifier, zero if none.
func (g *Generator) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Restore raises the counter to at least floor. It never lowers it.
func (g *Generator) Restore(floor uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if floor <= g.value {
		return nil
	}
	if err := g.store(floor); err != nil {
		return err
	}
	g.value = floor
	return nil
}

func (g *Generator) store(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if _, err := g.mem.WriteAt(buf[:], offValue); err != nil {
		return fmt.Errorf("persist counter: %w", err)
	}
	return nil
}
