// Package workers runs the side effects of a scored citation (speech,
// screenshots, printing, the pursuit siren) off the detection loop.
//
// Producers never block: a Queue drops the item when its buffer is full.
// Consumers never stop on a bad item: handler errors and panics are logged
// and the next item is processed.
package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/banshee-data/citation.report/internal/monitoring"
)

// DefaultQueueSize is the buffer used when NewQueue is given size <= 0.
const DefaultQueueSize = 64

// Handler processes one work item.
type Handler[T any] func(ctx context.Context, item T) error

// Queue is a bounded fire-and-forget work queue with a single consumer.
type Queue[T any] struct {
	name    string
	ch      chan T
	handle  Handler[T]
	metrics *monitoring.Metrics

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue. Start its consumer with Group.AddQueue.
func NewQueue[T any](name string, size int, handle Handler[T], metrics *monitoring.Metrics) *Queue[T] {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue[T]{
		name:    name,
		ch:      make(chan T, size),
		handle:  handle,
		metrics: metrics,
	}
}

// Name returns the queue's label.
func (q *Queue[T]) Name() string { return q.name }

// Submit enqueues item without blocking. It returns false when the queue is
// full or already closed; the item is dropped.
func (q *Queue[T]) Submit(item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		monitoring.Logf("[%s] queue closed, dropping item", q.name)
		q.metrics.QueueDropped(q.name)
		return false
	}
	select {
	case q.ch <- item:
		return true
	default:
		monitoring.Logf("[%s] queue full, dropping item", q.name)
		q.metrics.QueueDropped(q.name)
		return false
	}
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Close stops accepting items. The consumer drains what is buffered and
// then exits.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// run consumes until the channel is closed and drained. ctx is passed to the
// handler but does not stop consumption.
func (q *Queue[T]) run(ctx context.Context) error {
	for item := range q.ch {
		if err := q.process(ctx, item); err != nil {
			monitoring.Logf("[%s] %v", q.name, err)
		}
	}
	return nil
}

func (q *Queue[T]) process(ctx context.Context, item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return q.handle(ctx, item)
}
