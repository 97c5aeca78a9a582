// Package service implements the vendor-management operations on top of
// the durable store. Writes are funnelled through a bounded queue to a
// single writer goroutine; reads run concurrently against the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/vendorhub/internal/adapters/mq/queue"
	"github.com/okian/vendorhub/internal/adapters/mq/worker"
	"github.com/okian/vendorhub/internal/adapters/repository"
	"github.com/okian/vendorhub/internal/backup"
	"github.com/okian/vendorhub/internal/domain/dedupe"
	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/internal/domain/types"
	"github.com/okian/vendorhub/internal/domain/validation"
	"github.com/okian/vendorhub/internal/observability/tracing"
	"github.com/okian/vendorhub/pkg/logger"
	"github.com/okian/vendorhub/pkg/metrics"
)

// Outcome labels for results that are not a domain kind.
const (
	outcomeBackpressure = "Backpressure"
	outcomeUnconfirmed  = "Unconfirmed"
)

// Service implements the API dependencies for the vendor store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *repository.Store
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	writer   *worker.Writer
	validate *validation.Validator
	tracer   trace.Tracer
	now      func() time.Time

	// Configuration
	dataPath    string
	bucketPages int
	syncWrites  bool
	queueSize   int
	dedupeSize  int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		bucketPages: 16,
		queueSize:   1024,
		dedupeSize:  50000,
		now:         time.Now,
		validate:    validation.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and starts the writer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.tracer == nil {
		s.tracer = tracing.Tracer()
	}

	s.logger.Info(ctx, "starting vendor service...")

	if s.store == nil {
		st, err := repository.Open(ctx, s.dataPath,
			repository.WithLogger(s.logger.Named("store")),
			repository.WithBucketPages(s.bucketPages),
			repository.WithSyncOnCommit(s.syncWrites),
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = st
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewWriter(s.queue,
		worker.WithLogger(s.logger),
		worker.WithFatalClassifier(isFatal),
	)
	go s.writer.Run(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "vendor service started",
		logger.String("dataPath", s.dataPath),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("syncWrites", s.syncWrites),
	)
	return nil
}

// Stop drains queued writes, stops the writer and closes the store. It waits
// for operations already in progress.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping vendor service...")

	_ = s.queue.Close()
	<-s.writer.Done()

	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "failed to close store", logger.Error(err))
	}
	s.store = nil
	s.started = false
	s.logger.Info(ctx, "vendor service stopped")
}

// Started reports whether the service accepts operations.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Stats returns store statistics plus the write queue depth.
func (s *Service) Stats(ctx context.Context) (types.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Stats{}, ErrNotStarted
	}
	st := s.store.Stats()
	st.QueueLength = s.queue.Len(ctx)
	st.QueueCapacity = s.queue.Cap()
	return st, nil
}

// Store returns the underlying store, or nil when the service is stopped.
func (s *Service) Store() *repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Backup writes a compressed snapshot of the store to w and returns the
// image size. Writes wait until it completes.
func (s *Service) Backup(ctx context.Context, w io.Writer) (_ int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0, ErrNotStarted
	}
	_, finish := s.begin(ctx, "Backup")
	defer func() { finish(err) }()

	return backup.Write(w, s.store)
}

// ClaimIdempotencyKey records key and reports whether it was new. A false
// return means a request with the same key was already accepted.
func (s *Service) ClaimIdempotencyKey(ctx context.Context, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return true
	}
	if !s.deduper.Claim(ctx, key) {
		metrics.RecordIdempotentDuplicate()
		s.logger.Debug(ctx, "duplicate idempotency key", logger.String("key", key))
		return false
	}
	return true
}

// ReleaseIdempotencyKey forgets key so a failed request can be retried.
func (s *Service) ReleaseIdempotencyKey(ctx context.Context, key string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.started {
		s.deduper.Release(ctx, key)
	}
}

// begin opens the operation span and returns the function that closes it
// and records the outcome. Callers must hold s.mu.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "vendorhub."+op)
	start := time.Now()
	return ctx, func(err error) {
		outcome := outcomeOf(err)
		metrics.RecordOperation(op, outcome, float64(time.Since(start).Microseconds())/1000)
		span.SetAttributes(attribute.String("vendorhub.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			if isFatal(err) {
				span.SetStatus(codes.Error, err.Error())
				s.logger.Error(ctx, "operation failed",
					logger.String("operation", op),
					logger.Error(err),
				)
			}
		}
		span.End()
	}
}

// rejected logs the offending fields of an invalid payload and reports
// whether there were any.
func (s *Service) rejected(ctx context.Context, op string, fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	s.logger.Debug(ctx, "payload rejected",
		logger.String("operation", op),
		logger.String("fields", strings.Join(fields, "; ")),
	)
	return true
}

// submit runs fn under the store write lock on the writer goroutine and waits
// for its result. If ctx ends first the command still completes and the
// caller gets ErrUnconfirmed.
func (s *Service) submit(ctx context.Context, op string, fn func(tx *repository.Tx) error) error {
	cmd := queue.NewCommand(ctx, op, func(context.Context) error {
		return s.store.Update(fn)
	})
	if err := s.queue.Enqueue(ctx, cmd); err != nil {
		switch {
		case errors.Is(err, queue.ErrFull):
			return ErrBackpressure
		case errors.Is(err, queue.ErrClosed):
			return ErrNotStarted
		default:
			return err
		}
	}
	if err := cmd.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return fmt.Errorf("%w: %w", ErrUnconfirmed, err)
		}
		return err
	}
	return nil
}

// isFatal reports whether err is something other than a domain outcome.
func isFatal(err error) bool {
	var msg *model.Message
	return err != nil && !errors.As(err, &msg) &&
		!errors.Is(err, ErrBackpressure) && !errors.Is(err, ErrUnconfirmed)
}

func outcomeOf(err error) string {
	var msg *model.Message
	switch {
	case err == nil:
		return model.KindSuccess.String()
	case errors.As(err, &msg):
		return msg.Kind.String()
	case errors.Is(err, ErrBackpressure):
		return outcomeBackpressure
	case errors.Is(err, ErrUnconfirmed):
		return outcomeUnconfirmed
	default:
		return model.KindError.String()
	}
}
