// Package mpmcring provides a bounded generic ring buffer for message passing
// between goroutines. Several producer/consumer disciplines are available,
// the default one being lock-free multiple producers/multiple consumers.
//
// A buffer with N slots always keeps one of them free, so it holds at most N-1 items.
// Enqueue and Dequeue never block and return [ErrFull]/[ErrEmpty];
// Write and Read wait for space/data until the context is done or the buffer is closed.
package mpmcring

import (
	"github.com/FerroO2000/mpmcring/connector"
	"github.com/FerroO2000/mpmcring/internal"
	"github.com/FerroO2000/mpmcring/internal/config"
	"github.com/FerroO2000/mpmcring/internal/rb"
)

// RingBuffer is a bounded generic ring buffer.
type RingBuffer[T any] = rb.RingBuffer[T]

// BufferKind is the producer/consumer discipline of a [RingBuffer].
type BufferKind = rb.BufferKind

const (
	// BufferKindSPSC is the single producer/single consumer kind.
	BufferKindSPSC = rb.BufferKindSPSC
	// BufferKindMPSC is the multiple producer/single consumer kind.
	BufferKindMPSC = rb.BufferKindMPSC
	// BufferKindSPMC is the single producer/multiple consumer kind.
	BufferKindSPMC = rb.BufferKindSPMC
	// BufferKindMPMC is the multiple producer/multiple consumer kind.
	BufferKindMPMC = rb.BufferKindMPMC
	// BufferKindMutex is the mutex guarded kind.
	BufferKindMutex = rb.BufferKindMutex
)

// Config is the configuration of a [RingBuffer].
type Config = rb.Config

// FullError is returned by Enqueue on a full buffer, it carries the rejected value.
type FullError[T any] = rb.FullError[T]

// Connector represents the interface for a generic connector
// backed by a ring buffer.
type Connector[T any] = connector.Connector[T]

var (
	// ErrFull is matched by the error returned when enqueuing into a full buffer.
	ErrFull = rb.ErrFull
	// ErrEmpty is returned when dequeuing from an empty buffer.
	ErrEmpty = rb.ErrEmpty
	// ErrClosed is returned when the buffer is closed.
	ErrClosed = rb.ErrClosed
	// ErrInvalidCapacity is returned when a buffer is created with zero capacity.
	ErrInvalidCapacity = rb.ErrInvalidCapacity
)

// NewConfig returns the default configuration of a ring buffer.
func NewConfig() *Config {
	return rb.NewConfig()
}

// NewRingBuffer returns a new ring buffer with the given number of slots.
func NewRingBuffer[T any](capacity uint32, kind BufferKind) (*RingBuffer[T], error) {
	return rb.NewRingBuffer[T](capacity, kind)
}

// NewRingBufferFromConfig validates the configuration, logging the replaced
// values, and returns a new ring buffer.
func NewRingBufferFromConfig[T any](cfg *Config) (*RingBuffer[T], error) {
	validator := config.NewValidator(internal.NewTelemetry("ring_buffer", cfg.Kind.String()))
	validator.Validate(cfg)

	return rb.NewRingBufferFromConfig[T](cfg)
}

// ParseBufferKind returns the kind matching the given name (case insensitive).
func ParseBufferKind(name string) (BufferKind, error) {
	return rb.ParseBufferKind(name)
}

// RejectedValue returns the value handed back by a failed Enqueue.
func RejectedValue[T any](err error) (T, bool) {
	return rb.RejectedValue[T](err)
}
