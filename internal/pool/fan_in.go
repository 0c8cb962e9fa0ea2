package pool

import (
	"context"
	"math"

	"github.com/FerroO2000/mpmcring/internal/rb"
)

// FanIn is an utility struct to be used by a worker pool
// that receives items from multiple workers.
type FanIn[T any] struct {
	buffer *rb.RingBuffer[T]
}

// NewFanIn returns a new fan-in struct backed by an mpmc ring buffer.
// The capacity must be in the [1, math.MaxUint32] range.
func NewFanIn[T any](bufferCapacity int) (*FanIn[T], error) {
	if bufferCapacity < 1 || uint64(bufferCapacity) > math.MaxUint32 {
		return nil, rb.ErrInvalidCapacity
	}

	buffer, err := rb.NewRingBuffer[T](uint32(bufferCapacity), rb.BufferKindMPMC)
	if err != nil {
		return nil, err
	}

	return &FanIn[T]{
		buffer: buffer,
	}, nil
}

// AddTask enqueues a task in the ring buffer.
func (fi *FanIn[T]) AddTask(ctx context.Context, task T) error {
	return fi.buffer.Write(ctx, task)
}

// ReadTask dequeues a task from the ring buffer.
func (fi *FanIn[T]) ReadTask(ctx context.Context) (T, error) {
	return fi.buffer.Read(ctx)
}

// Len returns the number of tasks waiting in the ring buffer.
func (fi *FanIn[T]) Len() int {
	return int(fi.buffer.Len())
}

// Close closes the ring buffer.
func (fi *FanIn[T]) Close() {
	fi.buffer.Close()
}
