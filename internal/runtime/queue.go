package runtime

import (
	"sync"
)

// Queue runs a handler for each enqueued item, one at a time and in enqueue
// order, on a goroutine owned by the queue. Producers never wait on the
// handler.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool

	handle func(T)
	done   chan struct{}
}

func NewQueue[T any](handle func(T)) *Queue[T] {
	q := &Queue[T]{
		handle: handle,
		done:   make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Enqueue schedules v for the handler. It reports false once the queue is closed.
func (q *Queue[T]) Enqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, v)
	q.cond.Signal()
	return true
}

// Close discards pending items and blocks until a handler call in progress
// has returned. It must not be called from the handler itself.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.items = nil
		q.cond.Broadcast()
	}
	q.mu.Unlock()
	<-q.done
}

// Done is closed once the handler goroutine has exited.
func (q *Queue[T]) Done() <-chan struct{} { return q.done }

func (q *Queue[T]) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for !q.closed && len(q.items) == 0 {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		v := q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		q.mu.Unlock()

		q.handle(v)
	}
}
