package memmgr

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithBucketPages sets the bucket size used when a fresh memory is
// initialised. An existing layout keeps the bucket size it was created with.
func WithBucketPages(pages int) Option {
	return func(m *Manager) {
		if pages > 0 && pages <= MaxBucketPages {
			m.bucketPages = int64(pages)
		}
	}
}
