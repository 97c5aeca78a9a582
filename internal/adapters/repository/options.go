package repository

import (
	"github.com/okian/vendorhub/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithBucketPages sets the region bucket size for a freshly created image.
func WithBucketPages(pages int) Option {
	return func(s *Store) {
		if pages > 0 {
			s.bucketPages = pages
		}
	}
}

// WithMaxPages caps the size of the memory image. Zero means unlimited.
func WithMaxPages(pages int64) Option {
	return func(s *Store) {
		if pages >= 0 {
			s.maxPages = pages
		}
	}
}

// WithSyncOnCommit flushes the image to durable media after every Update
// that wrote something.
func WithSyncOnCommit(enabled bool) Option {
	return func(s *Store) {
		s.syncOnCommit = enabled
	}
}
