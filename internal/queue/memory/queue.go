// Package memory provides the in-process run queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromara/hq/internal/agent"
)

var (
	// ErrFull is returned when the queue has no spare capacity.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned once the queue has been shut down.
	ErrClosed = agent.ErrQueueClosed
)

// Queue is a bounded in-memory queue. Enqueue never blocks; callers surface
// ErrFull to clients instead of holding requests open.
type Queue struct {
	ch     chan agent.QueueItem
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan agent.QueueItem, capacity)}
}

// Enqueue adds a run or fails immediately when the queue is full or closed.
func (q *Queue) Enqueue(ctx context.Context, item agent.QueueItem) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue canceled: %w", err)
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- item:
		return nil
	default:
		return ErrFull
	}
}

// Dequeue pops the next run, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (agent.QueueItem, error) {
	select {
	case <-ctx.Done():
		return agent.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return agent.QueueItem{}, ErrClosed
		}
		return item, nil
	}
}

// Len reports how many runs are waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting work. Items already queued can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
