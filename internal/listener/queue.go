package listener

import (
	"context"
	"slices"
	"sync"

	"github.com/cellwarden/cellwarden/internal/event"
)

// DefaultQueueCapacity bounds each listener queue unless overridden.
const DefaultQueueCapacity = 1024

// Queue is a bounded FIFO of events. Pop blocks until an event is
// available or the context is canceled; Push fails once the bound is
// reached so backpressure is visible to the caller.
type Queue struct {
	name   string
	max    int
	mu     sync.Mutex
	items  []*event.Event
	notify chan struct{}
}

// NewQueue creates a bounded queue. A non-positive capacity falls back to
// DefaultQueueCapacity.
func NewQueue(name string, capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		name:   name,
		max:    capacity,
		notify: make(chan struct{}, 1),
	}
}

// Push appends an event to the queue.
func (q *Queue) Push(ev *event.Event) error {
	if ev == nil {
		return event.ErrNilEvent
	}
	q.mu.Lock()
	if len(q.items) >= q.max {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the oldest event, blocking until one is
// available or the context is canceled.
func (q *Queue) Pop(ctx context.Context) (*event.Event, error) {
	for {
		if ev, ok := q.TryPop(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// TryPop removes and returns the oldest event without blocking.
func (q *Queue) TryPop() (*event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	if len(q.items) > 0 {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return ev, true
}

// Remove deletes the first event matching the predicate and returns it.
func (q *Queue) Remove(match func(*event.Event) bool) (*event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, ev := range q.items {
		if match(ev) {
			q.items = slices.Delete(q.items, i, i+1)
			return ev, true
		}
	}
	return nil, false
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the queue contents in order.
func (q *Queue) Snapshot() []*event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// Replace swaps the queue contents, used when restoring a persisted
// snapshot. Events beyond the bound are dropped.
func (q *Queue) Replace(items []*event.Event) {
	q.mu.Lock()
	if len(items) > q.max {
		items = items[:q.max]
	}
	q.items = slices.Clone(items)
	notify := len(q.items) > 0
	q.mu.Unlock()

	if notify {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
}
