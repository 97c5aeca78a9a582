package memory

// Option applies a configuration option to a Memory implementation.
type Option func(*config)

type config struct {
	maxPages   int64
	syncWrites bool
}

func newConfig(opts []Option) config {
	c := config{}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithMaxPages caps the size of the memory. Zero means unlimited.
func WithMaxPages(pages int64) Option {
	return func(c *config) {
		if pages >= 0 {
			c.maxPages = pages
		}
	}
}

// WithSyncWrites makes every WriteAt durable before it returns.
// Only meaningful for file-backed memory.
func WithSyncWrites(enabled bool) Option {
	return func(c *config) {
		c.syncWrites = enabled
	}
}
