package engine

import "sync"

// job is a submitted request waiting for the Run loop.
type job struct {
	req   Request
	reply chan reply
}

// reply carries a processed request back to Submit.
type reply struct {
	result Result
	err    error
}

// jobQueue is a thread-safe FIFO queue feeding the single-writer loop.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []job
	closed bool
	signal chan struct{} // Signals job availability (buffered, size 1)
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]job, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a job to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *jobQueue) Enqueue(j job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.jobs = append(q.jobs, j)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front job without blocking.
// Returns (job{}, false) if the queue is empty.
func (q *jobQueue) TryDequeue() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return job{}, false
	}

	j := q.jobs[0]

	// Clear the slot so the backing array does not retain the request.
	q.jobs[0] = job{}

	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}

	return j, true
}

// Wait returns a channel that signals when jobs may be available.
// The channel is closed when the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Closed reports whether Close has been called.
func (q *jobQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting jobs and returns the ones still queued.
// Wakes any blocked waiters by closing the signal channel.
func (q *jobQueue) Close() []job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.signal)

	pending := q.jobs
	q.jobs = nil
	return pending
}
