package queue

import (
	"errors"
	"sync"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// ErrQueueClosed is returned when operations are attempted on a closed queue
var ErrQueueClosed = errors.New("queue is closed")

// MarkerQueue is an unbounded, thread-safe FIFO of marker events.
// Enqueue never blocks; Dequeue blocks until an item arrives or the queue
// is closed.
type MarkerQueue struct {
	items []ttypes.Event

	// Synchronization
	mu       sync.Mutex
	notEmpty *sync.Cond

	// State
	closed bool
	stats  Stats
}

// Stats tracks queue activity
type Stats struct {
	TotalEnqueued int64
	TotalDequeued int64
	CurrentSize   int
	PeakSize      int
}

// NewMarkerQueue creates an empty queue.
func NewMarkerQueue() *MarkerQueue {
	q := &MarkerQueue{
		items: make([]ttypes.Event, 0, 16),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a marker to the tail of the queue.
func (q *MarkerQueue) Enqueue(ev ttypes.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.items = append(q.items, ev)

	q.stats.TotalEnqueued++
	q.stats.CurrentSize = len(q.items)
	if q.stats.CurrentSize > q.stats.PeakSize {
		q.stats.PeakSize = q.stats.CurrentSize
	}

	q.notEmpty.Signal()
	return nil
}

// Dequeue removes and returns the head of the queue, waiting while the queue
// is empty. Items still queued when the queue is closed are discarded.
func (q *MarkerQueue) Dequeue() (ttypes.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	if q.closed {
		return ttypes.Event{}, ErrQueueClosed
	}

	ev := q.items[0]
	q.items[0] = ttypes.Event{}
	q.items = q.items[1:]

	q.stats.TotalDequeued++
	q.stats.CurrentSize = len(q.items)

	return ev, nil
}

// GetStats returns current queue statistics.
func (q *MarkerQueue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.CurrentSize = len(q.items)
	return stats
}

// Close wakes every waiting consumer. Further operations fail with
// ErrQueueClosed.
func (q *MarkerQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	q.notEmpty.Broadcast()
	return nil
}
