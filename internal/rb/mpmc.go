package rb

import (
	"runtime"
)

type mpmcBuffer[T any] struct {
	*commonBuffer

	// buffer is a ring buffer of stamped slots
	buffer []slot[T]
}

func newMPMCBuffer[T any](capacity uint64) *mpmcBuffer[T] {
	return &mpmcBuffer[T]{
		commonBuffer: newCommonBuffer(capacity),

		buffer: newSlots[T](capacity),
	}
}

func (rb *mpmcBuffer[T]) push(item T) bool {
	for {
		tail := rb.tail.Load()
		head := rb.head.Load()

		// The tail is stale, another producer has already advanced it
		if head > tail {
			continue
		}

		// Check if buffer is full. The head can only grow and the tail
		// is validated by the CAS below, so the check stays conservative.
		if tail-head >= rb.maxLen {
			return false
		}

		slot := &rb.buffer[rb.index(tail)]
		seq := slot.seq.Load()

		switch {
		case seq == tail:
			// Claim this slot by advancing the tail
			if !rb.tail.CompareAndSwap(tail, tail+1) {
				// Someone else claimed it, retry
				runtime.Gosched()
				continue
			}

			// Write the data and publish the slot
			slot.data = item
			slot.seq.Store(tail + 1)

			return true

		case seq < tail:
			// A consumer of the previous lap is still reclaiming the slot
			runtime.Gosched()

		default:
			// The slot has been claimed by another producer, retry
		}
	}
}

func (rb *mpmcBuffer[T]) pop() (T, bool) {
	var zero T

	for {
		head := rb.head.Load()

		slot := &rb.buffer[rb.index(head)]
		seq := slot.seq.Load()

		switch {
		case seq == head+1:
			// Try to claim this slot for reading by advancing the head
			if !rb.head.CompareAndSwap(head, head+1) {
				// Someone else claimed it, retry
				runtime.Gosched()
				continue
			}

			// Read the item, clear the slot and mark it as reclaimed
			item := slot.data
			slot.data = zero
			slot.seq.Store(head + rb.capacity)

			return item, true

		case seq < head+1:
			// Check if buffer is empty
			if rb.tail.Load() == head {
				return zero, false
			}

			// A producer has claimed the slot but not published it yet
			runtime.Gosched()

		default:
			// The head is stale, another consumer has already advanced it
		}
	}
}
