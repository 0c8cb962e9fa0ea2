package rb

type spscBuffer[T any] struct {
	*commonBuffer

	buffer []T
}

func newSPSCBuffer[T any](capacity uint64) *spscBuffer[T] {
	return &spscBuffer[T]{
		commonBuffer: newCommonBuffer(capacity),

		buffer: make([]T, capacity),
	}
}

func (b *spscBuffer[T]) push(item T) bool {
	// The tail is owned by the producer
	tail := b.tail.Load()
	head := b.head.Load()

	// Check if buffer is full
	if tail-head >= b.maxLen {
		return false
	}

	// Add the item to the buffer
	b.buffer[b.index(tail)] = item

	// Publish the item by increasing tail
	b.tail.Store(tail + 1)

	return true
}

func (b *spscBuffer[T]) pop() (T, bool) {
	var zero T

	// The head is owned by the consumer
	head := b.head.Load()
	tail := b.tail.Load()

	// Check if buffer is empty
	if head == tail {
		return zero, false
	}

	// Get the item and clear the slot
	itemIndex := b.index(head)
	item := b.buffer[itemIndex]
	b.buffer[itemIndex] = zero

	// Release the slot by increasing head
	b.head.Store(head + 1)

	return item, true
}
