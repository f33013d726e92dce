package engine

import "sync"

// activationQueue is a thread-safe FIFO of pending task selections.
//
// Producers (stdin readers, HTTP handlers, tests) call Enqueue from any
// goroutine; the engine drains it at the start of each tick. The queue is
// unbounded so producers never block on a slow tick.
//
// The signal channel has a buffer of one and coalesces wakeups; it is
// closed by Close so that Run notices shutdown.
type activationQueue struct {
	mu     sync.Mutex
	items  []Activation
	closed bool
	signal chan struct{}
}

func newActivationQueue() *activationQueue {
	return &activationQueue{
		items:  make([]Activation, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a to the queue. Returns false if the queue is closed.
func (q *activationQueue) Enqueue(a Activation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, a)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front activation without blocking.
func (q *activationQueue) TryDequeue() (Activation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Activation{}, false
	}
	a := q.items[0]

	// Drop the Manual pointer held by the backing array.
	q.items[0] = Activation{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return a, true
}

// Wait returns a channel that receives when activations may be available
// and is closed when the queue is closed.
func (q *activationQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending activations.
func (q *activationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *activationQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting activations and wakes waiters.
func (q *activationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
