package service

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/okian/vendorhub/internal/adapters/repository"
	"github.com/okian/vendorhub/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataPath sets the data file. An empty path keeps the store in memory.
func WithDataPath(path string) Option {
	return func(s *Service) {
		s.dataPath = path
	}
}

// WithBucketPages sets the region bucket size used when a new data file is
// created.
func WithBucketPages(pages int) Option {
	return func(s *Service) {
		if pages > 0 {
			s.bucketPages = pages
		}
	}
}

// WithSyncWrites flushes the data file after every committed write.
func WithSyncWrites(enabled bool) Option {
	return func(s *Service) {
		s.syncWrites = enabled
	}
}

// WithQueueSize sets the maximum number of pending write commands.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the time source used for created_at and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracer sets the tracer operations open spans on.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithStore makes Start use an already opened store instead of opening the
// data path. Stop still closes it.
func WithStore(st *repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}
