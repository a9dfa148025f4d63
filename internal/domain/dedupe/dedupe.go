// Package dedupe remembers the outcome of idempotent requests.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// State is what Begin found for a key.
type State int

const (
	// StateNew means the caller now owns the key and must Complete or Abort it.
	StateNew State = iota
	// StateDone means the key already completed; the stored value is returned.
	StateDone
)

// Deduper tracks idempotency keys and the value each produced.
type Deduper[V any] interface {
	// Begin claims key for a request identified by fingerprint. It fails
	// with ErrInFlight while another request holds the key and with
	// ErrKeyReuse when the key completed for a different fingerprint.
	Begin(ctx context.Context, key, fingerprint string) (V, State, error)
	// Complete stores v as the key's outcome.
	Complete(ctx context.Context, key string, v V)
	// Abort releases a claimed key so the request can be retried.
	Abort(ctx context.Context, key string)
	Size() int64
}

type entry[V any] struct {
	key         string
	fingerprint string
	value       V
	done        bool
}

// inMemoryDeduper keeps at most maxSize keys, evicting the oldest first.
// maxSize <= 0 means unbounded.
type inMemoryDeduper[V any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper[V any](opts ...Option) Deduper[V] {
	cfg := config{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &inMemoryDeduper[V]{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: cfg.maxSize,
	}
}

func (d *inMemoryDeduper[V]) Begin(_ context.Context, key, fingerprint string) (V, State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero V
	if el, ok := d.entries[key]; ok {
		e := el.Value.(*entry[V])
		switch {
		case !e.done:
			return zero, StateNew, ErrInFlight
		case e.fingerprint != fingerprint:
			return zero, StateNew, ErrKeyReuse
		default:
			return e.value, StateDone, nil
		}
	}

	if d.maxSize > 0 && len(d.entries) >= d.maxSize {
		d.evictOldest()
	}
	d.entries[key] = d.order.PushBack(&entry[V]{key: key, fingerprint: fingerprint})
	d.size.Add(1)
	return zero, StateNew, nil
}

func (d *inMemoryDeduper[V]) Complete(_ context.Context, key string, v V) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.entries[key]; ok {
		e := el.Value.(*entry[V])
		e.value, e.done = v, true
	}
}

func (d *inMemoryDeduper[V]) Abort(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.entries[key]; ok {
		d.remove(el)
	}
}

// evictOldest drops the oldest completed key. Keys still in flight are
// never evicted, so the cache may briefly exceed maxSize.
// It must be called with d.mu held.
func (d *inMemoryDeduper[V]) evictOldest() {
	for el := d.order.Front(); el != nil; el = el.Next() {
		if el.Value.(*entry[V]).done {
			d.remove(el)
			return
		}
	}
}

func (d *inMemoryDeduper[V]) remove(el *list.Element) {
	e := d.order.Remove(el).(*entry[V])
	delete(d.entries, e.key)
	d.size.Add(-1)
}

// Size returns the current number of keys held.
func (d *inMemoryDeduper[V]) Size() int64 {
	return d.size.Load()
}
