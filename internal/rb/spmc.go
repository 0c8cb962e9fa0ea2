package rb

import (
	"runtime"
)

// spmcBuffer shares the consumer side of the mpmc buffer,
// the single producer owns the tail and does not need a CAS.
type spmcBuffer[T any] struct {
	*mpmcBuffer[T]
}

func newSPMCBuffer[T any](capacity uint64) *spmcBuffer[T] {
	return &spmcBuffer[T]{
		mpmcBuffer: newMPMCBuffer[T](capacity),
	}
}

func (rb *spmcBuffer[T]) push(item T) bool {
	tail := rb.tail.Load()

	// Check if the buffer is full
	if tail-rb.head.Load() >= rb.maxLen {
		return false
	}

	slot := &rb.buffer[rb.index(tail)]

	// Wait for the consumer of the previous lap to reclaim the slot
	for slot.seq.Load() != tail {
		runtime.Gosched()
	}

	// Advance the tail before publishing, so consumers
	// never observe a head greater than the tail
	slot.data = item
	rb.tail.Store(tail + 1)
	slot.seq.Store(tail + 1)

	return true
}
