package export

import "sync"

// Dispatcher runs completion callbacks.
type Dispatcher interface {
	Dispatch(fn func())
}

// Compile-time check that SerialQueue implements Dispatcher.
var _ Dispatcher = (*SerialQueue)(nil)

// SerialQueue runs callbacks one at a time, in submission order, on a single
// goroutine. Dispatch never blocks, so callbacks may dispatch further work.
type SerialQueue struct {
	mu      sync.Mutex
	ready   *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
}

// NewSerialQueue starts a queue with room for buffer pending callbacks
// before its backlog grows.
func NewSerialQueue(buffer int) *SerialQueue {
	q := &SerialQueue{
		pending: make([]func(), 0, max(buffer, 0)),
		done:    make(chan struct{}),
	}
	q.ready = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *SerialQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.ready.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()
	}
}

// Dispatch enqueues fn. Callbacks dispatched after Close are dropped.
func (q *SerialQueue) Dispatch(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending = append(q.pending, fn)
	q.ready.Signal()
}

// Close stops accepting callbacks and waits for the queued ones to run. It
// must not be called from a callback.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.ready.Broadcast()
	q.mu.Unlock()
	<-q.done
}
