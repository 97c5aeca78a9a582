package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of keys kept in memory.
// If maxSize > 0 the oldest key is evicted when full.
// If maxSize <= 0 keys are never evicted.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithEvictionHook registers fn to be called with each evicted key.
func WithEvictionHook(fn func(key string)) Option {
	return func(d *inMemoryDeduper) {
		d.onEvict = fn
	}
}
