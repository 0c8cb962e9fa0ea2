package rb

import (
	"runtime"
)

// mpscBuffer shares the producer side of the mpmc buffer,
// the single consumer owns the head and does not need a CAS.
type mpscBuffer[T any] struct {
	*mpmcBuffer[T]
}

func newMPSCBuffer[T any](capacity uint64) *mpscBuffer[T] {
	return &mpscBuffer[T]{
		mpmcBuffer: newMPMCBuffer[T](capacity),
	}
}

func (rb *mpscBuffer[T]) pop() (T, bool) {
	var zero T

	head := rb.head.Load()
	slot := &rb.buffer[rb.index(head)]

	for slot.seq.Load() != head+1 {
		// Check if the buffer is empty
		if rb.tail.Load() == head {
			return zero, false
		}

		// A producer has claimed the slot but not published it yet
		runtime.Gosched()
	}

	item := slot.data
	slot.data = zero
	slot.seq.Store(head + rb.capacity)

	rb.head.Store(head + 1)

	return item, true
}
