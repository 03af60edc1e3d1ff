// Package queue provides the in-process work queue between the submission
// handler and the worker loop: unbounded, strict FIFO, any number of
// producers, exactly one consumer.
package queue

import (
	"context"
	"sync"
)

// Item is one deferred unit of processing work. Ownership transfers entirely
// to the consumer on dequeue; the queue keeps no reference afterward.
type Item struct {
	ID string
	// TempPath is where the submission handler parked the file.
	TempPath string
	// FinalName is the collision-free filename to commit under.
	FinalName string
}

// Queue is a multi-producer single-consumer FIFO. Enqueue never blocks and
// never rejects; Dequeue blocks until an item arrives or the context is
// cancelled.
type Queue struct {
	mu    sync.Mutex
	items []Item
	// wake has capacity 1 so producer signals coalesce; the consumer re-checks
	// the list after every wakeup.
	wake chan struct{}
}

// New constructs an empty Queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Enqueue appends an item to the tail and wakes the consumer.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the head item, blocking while the queue is
// empty. It returns ctx.Err() once the context is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (Item, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-q.wake:
		}
	}
}

// Len reports how many items are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
