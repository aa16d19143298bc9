package session

import (
	"sync"

	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// completion is the result of one image decode task.
type completion struct {
	node   tree.NodeID
	token  uint64
	width  int
	height int
	err    error
}

// completionQueue is an unbounded FIFO shared by decode goroutines
// (producers) and the session owner (consumer).
//
// Waiting goes through a size-1 signal channel so the owner can select on
// it alongside its other event sources. Multiple enqueues between two
// waits coalesce into one signal; the consumer drains with TryDequeue.
type completionQueue struct {
	mu     sync.Mutex
	items  []completion
	closed bool
	signal chan struct{}
}

func newCompletionQueue() *completionQueue {
	return &completionQueue{
		items:  make([]completion, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends c. Returns false if the queue is closed.
func (q *completionQueue) Enqueue(c completion) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, c)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front item without blocking.
func (q *completionQueue) TryDequeue() (completion, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return completion{}, false
	}
	c := q.items[0]
	q.items[0] = completion{} // drop the error reference
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return c, true
}

// Wait returns a channel that receives when items may be available. It is
// closed by Close.
func (q *completionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued items.
func (q *completionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further enqueues and wakes waiters. Queued items stay
// available to TryDequeue.
func (q *completionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
