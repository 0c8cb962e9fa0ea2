package connector

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/mpmcring/internal/rb"
)

var (
	// ErrClosed is returned when the ring buffer is closed.
	ErrClosed = rb.ErrClosed

	// ErrReadTimeout is returned when a read exceeds the read timeout.
	ErrReadTimeout = rb.ErrReadTimeout
)

var _ Connector[any] = (*RingBuffer[any])(nil)

// RingBuffer is a connector backed by a bounded ring buffer.
type RingBuffer[T any] struct {
	buffer *rb.RingBuffer[T]

	readTimeout atomic.Int64
}

// NewRingBuffer returns a new lock-free mpmc ring buffer connector
// with the given number of slots.
func NewRingBuffer[T any](capacity uint32) (*RingBuffer[T], error) {
	return NewRingBufferWithKind[T](capacity, rb.BufferKindMPMC)
}

// NewRingBufferWithKind returns a new ring buffer connector
// with the given number of slots and producer/consumer discipline.
func NewRingBufferWithKind[T any](capacity uint32, kind rb.BufferKind) (*RingBuffer[T], error) {
	cfg := rb.NewConfig()
	cfg.Capacity = capacity
	cfg.Kind = kind

	return NewRingBufferFromConfig[T](cfg)
}

// NewRingBufferFromConfig returns a new ring buffer connector
// built from an already validated configuration.
func NewRingBufferFromConfig[T any](cfg *rb.Config) (*RingBuffer[T], error) {
	buffer, err := rb.NewRingBufferFromConfig[T](cfg)
	if err != nil {
		return nil, err
	}

	return &RingBuffer[T]{
		buffer: buffer,
	}, nil
}

// SetReadTimeout sets the maximum time a read waits for data.
// A non-positive timeout disables it.
func (c *RingBuffer[T]) SetReadTimeout(readTimeout time.Duration) {
	c.readTimeout.Store(int64(readTimeout))
}

// Write adds an item to the connector.
func (c *RingBuffer[T]) Write(ctx context.Context, item T) error {
	return c.buffer.Write(ctx, item)
}

// Read returns the oldest item of the connector.
// It returns [ErrReadTimeout] when no item arrives within the read timeout.
func (c *RingBuffer[T]) Read(ctx context.Context) (T, error) {
	readTimeout := time.Duration(c.readTimeout.Load())
	if readTimeout <= 0 {
		return c.buffer.Read(ctx)
	}

	timeoutCtx, cancelCtx := context.WithTimeoutCause(ctx, readTimeout, ErrReadTimeout)
	defer cancelCtx()

	item, err := c.buffer.Read(timeoutCtx)
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(context.Cause(timeoutCtx), ErrReadTimeout) {
		return item, ErrReadTimeout
	}

	return item, err
}

// Len returns the number of items waiting in the connector.
func (c *RingBuffer[T]) Len() int {
	return int(c.buffer.Len())
}

// Close closes the connector.
func (c *RingBuffer[T]) Close() {
	c.buffer.Close()
}
