package worker

import (
	"errors"

	"github.com/okian/rally/internal/adapters/mq/queue"
)

// Sentinel kinds for writer errors.
var (
	// ErrBusy means the command queue is full; retry later.
	ErrBusy    = errors.New("writer busy")
	ErrStopped = errors.New("writer stopped")
	ErrPanic   = errors.New("command panicked")
)

func isFull(err error) bool   { return errors.Is(err, queue.ErrFull) }
func isClosed(err error) bool { return errors.Is(err, queue.ErrClosed) }
