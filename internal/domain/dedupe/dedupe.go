// Package dedupe tracks idempotency keys so a retried create is applied at
// most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50000

// Deduper records idempotency keys.
type Deduper interface {
	// Claim records key and reports true if it was not held before. A false
	// return means another request already claimed the key.
	Claim(ctx context.Context, key string) bool

	// Release forgets key so the request can be retried. Used when the
	// claimed operation did not commit.
	Release(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps claimed keys in insertion order. In bounded mode the
// oldest key is evicted once maxSize is reached; otherwise keys are kept
// forever.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
	onEvict func(key string)
}

// NewInMemoryDeduper creates a deduper configured by opts.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Claim implements Deduper.
func (d *inMemoryDeduper) Claim(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, held := d.seen[key]; held {
		return false
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushBack(key)
	d.size.Add(1)
	return true
}

// Release implements Deduper.
func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, held := d.seen[key]; held {
		d.order.Remove(e)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// Size implements Deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	e := d.order.Front()
	if e == nil {
		return
	}
	key := d.order.Remove(e).(string)
	delete(d.seen, key)
	d.size.Add(-1)
	if d.onEvict != nil {
		d.onEvict(key)
	}
}
