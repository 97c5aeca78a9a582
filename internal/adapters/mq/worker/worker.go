// Package worker runs queued commands one at a time.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/vendorhub/internal/adapters/mq/queue"
	"github.com/okian/vendorhub/pkg/logger"
	"github.com/okian/vendorhub/pkg/metrics"
)

// Queue defines how the writer receives commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *queue.Command
}

// Writer is the only goroutine that executes mutating commands, so
// commands never interleave.
type Writer struct {
	queue  Queue
	name   string
	logger logger.Logger
	fatal  func(error) bool

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}
}

// NewWriter creates a writer consuming q.
func NewWriter(q Queue, opts ...Option) *Writer {
	w := &Writer{
		queue:    q,
		name:     "writer",
		logger:   logger.Nop(),
		fatal:    func(error) bool { return true },
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run executes commands until the queue is closed and drained, or until ctx
// is cancelled or Shutdown is called; commands left behind then receive
// ErrStopped.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	cmds := w.queue.Dequeue(ctx)
	for {
		// stopping takes priority over queued work
		select {
		case <-ctx.Done():
			w.abandon(cmds)
			return
		case <-w.shutdown:
			w.abandon(cmds)
			return
		default:
		}

		select {
		case <-ctx.Done():
			w.abandon(cmds)
			return
		case <-w.shutdown:
			w.abandon(cmds)
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			w.execute(cmd)
		}
	}
}

// Shutdown stops the writer after the command in flight, if any.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *Writer) Done() <-chan struct{} { return w.done }

func (w *Writer) execute(cmd *queue.Command) {
	metrics.RecordQueueWaitLatency(float64(time.Since(cmd.Enqueued()).Microseconds()) / 1000)
	metrics.UpdateWriterBusy(true)
	start := time.Now()

	err := cmd.Execute()

	metrics.UpdateWriterBusy(false)
	metrics.RecordWriterCommand(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil && w.fatal(err) {
		metrics.RecordWriterError()
		metrics.RecordErrorByComponent("writer", cmd.Name())
		w.logger.Error(context.Background(), "command failed",
			logger.String("command", cmd.Name()),
			logger.Error(err),
		)
	}
}

// abandon fails whatever is still buffered without blocking.
func (w *Writer) abandon(cmds <-chan *queue.Command) {
	for {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			cmd.Abort(ErrStopped)
		default:
			return
		}
	}
}
