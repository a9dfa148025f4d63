// Package queue holds the bounded command queue in front of the single
// ledger writer.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/rally/pkg/metrics"
)

const defaultQueueCapacity = 256

// Result is what a command produced.
type Result struct {
	Value any
	Err   error
}

// Command is one write waiting for the writer goroutine.
type Command struct {
	// Name labels the command in logs and metrics.
	Name string
	// Ctx is the submitter's context. A command whose context is done
	// before it starts is skipped.
	Ctx  context.Context
	Exec func(ctx context.Context) (any, error)
	// Reply must be buffered; the writer never blocks on it.
	Reply      chan<- Result
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command, or returns ErrFull or ErrClosed without blocking.
	Enqueue(ctx context.Context, c Command) error
	// Dequeue returns the channel the writer reads. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Command
	Len(ctx context.Context) int
	Capacity() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands chan Command
	capacity int
	mu       sync.RWMutex
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.commands = make(chan Command, q.capacity)

	metrics.UpdateWriterQueueCapacity(q.capacity)
	metrics.UpdateWriterQueueSize(0)
	return q
}

// Enqueue adds a command to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Command) error { //nolint:gocritic // hugeParam: passed by value onto the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.EnqueuedAt.IsZero() {
		c.EnqueuedAt = time.Now()
	}

	select {
	case q.commands <- c:
		metrics.UpdateWriterQueueSize(len(q.commands))
		return nil
	default:
		metrics.RecordWriterRejected()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the command channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Command {
	return q.commands
}

// Len returns the current number of queued commands.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.commands)
	metrics.UpdateWriterQueueSize(size)
	return size
}

// Capacity returns the maximum number of pending commands.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting commands. Commands already queued stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.commands)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
