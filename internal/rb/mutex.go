package rb

import (
	"sync"
)

// mutexBuffer is the lock based implementation. A single mutex guards
// the storage and both indices, which are kept in the [0, capacity) range.
type mutexBuffer[T any] struct {
	mux *sync.Mutex

	head     uint64
	tail     uint64
	capacity uint64

	buffer []T
}

func newMutexBuffer[T any](capacity uint64) *mutexBuffer[T] {
	return &mutexBuffer[T]{
		mux: &sync.Mutex{},

		capacity: capacity,

		buffer: make([]T, capacity),
	}
}

func (b *mutexBuffer[T]) next(idx uint64) uint64 {
	return (idx + 1) % b.capacity
}

func (b *mutexBuffer[T]) push(item T) bool {
	b.mux.Lock()
	defer b.mux.Unlock()

	if b.next(b.tail) == b.head {
		return false
	}

	b.buffer[b.tail] = item
	b.tail = b.next(b.tail)

	return true
}

func (b *mutexBuffer[T]) pop() (T, bool) {
	var zero T

	b.mux.Lock()
	defer b.mux.Unlock()

	if b.head == b.tail {
		return zero, false
	}

	item := b.buffer[b.head]
	b.buffer[b.head] = zero
	b.head = b.next(b.head)

	return item, true
}

func (b *mutexBuffer[T]) len() uint64 {
	b.mux.Lock()
	defer b.mux.Unlock()

	return (b.tail + b.capacity - b.head) % b.capacity
}

func (b *mutexBuffer[T]) positions() (uint64, uint64) {
	b.mux.Lock()
	defer b.mux.Unlock()

	return b.head, b.tail
}
