package collection

// Option configures a Collection.
type Option func(*config)

type config struct {
	barrier bool
}

// WithCommitBarrier flushes every slot to durable media before the committed
// count that covers it is written.
func WithCommitBarrier(enabled bool) Option {
	return func(c *config) {
		c.barrier = enabled
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
