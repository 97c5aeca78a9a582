package queue

import (
	"context"
	"time"
)

// Command is one unit of work for the writer. Run executes exactly once;
// its outcome is delivered on Done.
type Command struct {
	ctx      context.Context
	name     string
	run      func(ctx context.Context) error
	enqueued time.Time
	done     chan error
}

// NewCommand wraps run. ctx supplies request-scoped values to run; its
// cancellation does not interrupt a command that has started.
func NewCommand(ctx context.Context, name string, run func(ctx context.Context) error) *Command {
	return &Command{
		ctx:  ctx,
		name: name,
		run:  run,
		done: make(chan error, 1),
	}
}

// Name returns the command name.
func (c *Command) Name() string { return c.name }

// Enqueued returns when the command entered the queue.
func (c *Command) Enqueued() time.Time { return c.enqueued }

// Execute runs the command and publishes its result.
func (c *Command) Execute() error {
	err := c.run(context.WithoutCancel(c.ctx))
	c.done <- err
	return err
}

// Abort publishes err without running the command.
func (c *Command) Abort(err error) {
	c.done <- err
}

// Done delivers the command's result once.
func (c *Command) Done() <-chan error { return c.done }

// Wait blocks until the command completes or ctx is done.
func (c *Command) Wait(ctx context.Context) error {
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
