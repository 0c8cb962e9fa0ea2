package rb

import (
	"errors"
)

var (
	// ErrFull is returned when an item is enqueued into a full buffer.
	// The error returned by [RingBuffer.Enqueue] is a [*FullError] that matches it.
	ErrFull = errors.New("ring buffer: buffer is full")

	// ErrEmpty is returned when an item is dequeued from an empty buffer.
	ErrEmpty = errors.New("ring buffer: buffer is empty")

	// ErrClosed is returned when the buffer is closed.
	ErrClosed = errors.New("ring buffer: buffer is closed")

	// ErrInvalidCapacity is returned when a buffer is created with zero capacity.
	ErrInvalidCapacity = errors.New("ring buffer: capacity must be greater than zero")

	// ErrUnknownKind is returned when a buffer is created with an unknown kind.
	ErrUnknownKind = errors.New("ring buffer: unknown buffer kind")

	// ErrReadTimeout is returned when a read waits longer than the configured timeout.
	ErrReadTimeout = errors.New("ring buffer: read timeout")
)

// FullError is returned by [RingBuffer.Enqueue] when the buffer is full.
// It hands the rejected value back to the caller.
type FullError[T any] struct {
	Value T
}

func (e *FullError[T]) Error() string {
	return ErrFull.Error()
}

// Is reports whether target is [ErrFull].
func (e *FullError[T]) Is(target error) bool {
	return target == ErrFull
}

// RejectedValue extracts the value carried by a [*FullError].
func RejectedValue[T any](err error) (T, bool) {
	var fullErr *FullError[T]
	if errors.As(err, &fullErr) {
		return fullErr.Value, true
	}

	return *new(T), false
}
