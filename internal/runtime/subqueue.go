package runtime

import (
	"sync"
)

// SubQueue buffers events for a single channel subscriber. Enqueue never
// blocks the producer; a dispatcher goroutine feeds the out channel in order.
type SubQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool

	outCh chan T        // consumer reads from this
	quit  chan struct{} // unblocks a pending send on Close
	once  sync.Once
}

func NewSubQueue[T any](outBuf int) *SubQueue[T] {
	sq := &SubQueue[T]{
		outCh: make(chan T, outBuf),
		quit:  make(chan struct{}),
	}
	sq.cond = sync.NewCond(&sq.mu)
	go sq.dispatch()
	return sq
}

// Channel exposed to subscriber.
func (sq *SubQueue[T]) Chan() <-chan T { return sq.outCh }

// Enqueue appends to the in-memory queue and wakes dispatcher. It reports
// false if the queue was already closed.
func (sq *SubQueue[T]) Enqueue(ev T) bool {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.closed {
		return false
	}
	sq.queue = append(sq.queue, ev)
	sq.cond.Signal()
	return true
}

// Len returns the number of events not yet handed to the out channel.
func (sq *SubQueue[T]) Len() int {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return len(sq.queue)
}

// Close drops undelivered events, stops the dispatcher and closes the out
// channel. It does not wait for the consumer.
func (sq *SubQueue[T]) Close() {
	sq.once.Do(func() {
		sq.mu.Lock()
		sq.closed = true
		sq.queue = nil
		sq.cond.Broadcast()
		sq.mu.Unlock()
		close(sq.quit)
	})
}

func (sq *SubQueue[T]) dispatch() {
	defer close(sq.outCh)
	for {
		sq.mu.Lock()
		for !sq.closed && len(sq.queue) == 0 {
			sq.cond.Wait()
		}
		if sq.closed {
			sq.mu.Unlock()
			return
		}
		ev := sq.queue[0]
		var zero T
		sq.queue[0] = zero
		sq.queue = sq.queue[1:]
		sq.mu.Unlock()

		select {
		case sq.outCh <- ev:
		case <-sq.quit:
			return
		}
	}
}
