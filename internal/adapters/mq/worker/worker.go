// Package worker runs the single writer goroutine that applies every
// ledger mutation in queue order.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Queue is what the writer reads from and submitters push to.
type Queue interface {
	Enqueue(ctx context.Context, c queue.Command) error
	Dequeue(ctx context.Context) <-chan queue.Command
	Len(ctx context.Context) int
	Close() error
}

// Writer executes commands one at a time.
type Writer struct {
	queue  Queue
	name   string
	logger logger.Logger

	done chan struct{}
}

// NewWriter creates a writer over q. Call Run exactly once.
func NewWriter(q Queue, opts ...Option) *Writer {
	w := &Writer{
		queue:  q,
		name:   "writer",
		logger: logger.Nop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run executes commands until the queue is closed and drained or ctx is done.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "writer stopped", logger.Error(ctx.Err()))
			return
		case c, ok := <-commands:
			if !ok {
				w.logger.Info(ctx, "writer drained")
				return
			}
			w.process(c)
			metrics.UpdateWriterQueueSize(w.queue.Len(ctx))
		}
	}
}

// Submit enqueues fn and waits for its result. A full queue fails fast
// with ErrBusy.
func (w *Writer) Submit(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	reply := make(chan queue.Result, 1)
	err := w.queue.Enqueue(ctx, queue.Command{Name: name, Ctx: ctx, Exec: fn, Reply: reply})
	switch {
	case err == nil:
	case isFull(err):
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	case isClosed(err):
		return nil, fmt.Errorf("%w: %w", ErrStopped, err)
	default:
		return nil, err
	}

	select {
	case r := <-reply:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		// The writer may have answered just before exiting.
		select {
		case r := <-reply:
			return r.Value, r.Err
		default:
			return nil, ErrStopped
		}
	}
}

// Do is Submit with a typed result.
func Do[T any](ctx context.Context, w *Writer, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := w.Submit(ctx, name, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	var zero T
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("writer: %s returned %T", name, v)
	}
	return out, nil
}

// Shutdown closes the queue and waits for pending commands to finish.
func (w *Writer) Shutdown(ctx context.Context) error {
	if err := w.queue.Close(); err != nil {
		w.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

func (w *Writer) process(c queue.Command) { //nolint:gocritic // hugeParam: commands travel by value
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordWriterCommand(c.Name, "skipped", 0)
		c.Reply <- queue.Result{Err: err}
		return
	}

	start := time.Now()
	value, err := w.execute(ctx, c)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		metrics.RecordErrorByComponent("writer", c.Name)
	}
	metrics.RecordWriterCommand(c.Name, status, float64(elapsed.Microseconds())/1000)
	w.logger.Debug(ctx, "command executed",
		logger.String("command", c.Name),
		logger.String("status", status),
		logger.Duration("waited", start.Sub(c.EnqueuedAt)),
		logger.Duration("elapsed", elapsed))

	c.Reply <- queue.Result{Value: value, Err: err}
}

func (w *Writer) execute(ctx context.Context, c queue.Command) (value any, err error) { //nolint:gocritic // hugeParam: commands travel by value
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "command panicked", logger.String("command", c.Name), logger.Any("panic", r))
			err = fmt.Errorf("%w: %s: %v", ErrPanic, c.Name, r)
		}
	}()
	return c.Exec(ctx)
}
