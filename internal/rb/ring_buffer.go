// Package rb provides a bounded generic ring buffer with lock-free
// spsc/mpsc/spmc/mpmc implementations and a mutex based fallback.
//
// A buffer of capacity N always keeps one slot free, so it holds at most
// N-1 items: it is empty when head == tail and full when (tail+1) mod N == head.
package rb

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// BufferKind is the type of the internal buffer implementation.
type BufferKind uint8

const (
	// BufferKindSPSC is the single producer/single consumer ring buffer implementation.
	BufferKindSPSC BufferKind = iota
	// BufferKindMPSC is the multiple producer/single consumer ring buffer implementation.
	BufferKindMPSC
	// BufferKindSPMC is the single producer/multiple consumer ring buffer implementation.
	BufferKindSPMC
	// BufferKindMPMC is the multiple producer/multiple consumer ring buffer implementation.
	BufferKindMPMC
	// BufferKindMutex is the mutex guarded ring buffer implementation.
	// It is safe for any number of producers and consumers.
	BufferKindMutex
)

func (bk BufferKind) String() string {
	switch bk {
	case BufferKindSPSC:
		return "SPSC"
	case BufferKindMPSC:
		return "MPSC"
	case BufferKindSPMC:
		return "SPMC"
	case BufferKindMPMC:
		return "MPMC"
	case BufferKindMutex:
		return "Mutex"
	default:
		return "unknown"
	}
}

func (bk BufferKind) isValid() bool {
	return bk <= BufferKindMutex
}

// MultiProducer states whether the kind supports concurrent producers.
func (bk BufferKind) MultiProducer() bool {
	return bk == BufferKindMPSC || bk == BufferKindMPMC || bk == BufferKindMutex
}

// MultiConsumer states whether the kind supports concurrent consumers.
func (bk BufferKind) MultiConsumer() bool {
	return bk == BufferKindSPMC || bk == BufferKindMPMC || bk == BufferKindMutex
}

// ParseBufferKind returns the kind matching the given name (case insensitive).
func ParseBufferKind(name string) (BufferKind, error) {
	for kind := BufferKindSPSC; kind.isValid(); kind++ {
		if strings.EqualFold(name, kind.String()) {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func newBuffer[T any](capacity uint64, kind BufferKind) (buffer[T], error) {
	switch kind {
	case BufferKindSPSC:
		return newSPSCBuffer[T](capacity), nil
	case BufferKindMPSC:
		return newMPSCBuffer[T](capacity), nil
	case BufferKindSPMC:
		return newSPMCBuffer[T](capacity), nil
	case BufferKindMPMC:
		return newMPMCBuffer[T](capacity), nil
	case BufferKindMutex:
		return newMutexBuffer[T](capacity), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}

// RingBuffer is a bounded generic ring buffer.
//
// Enqueue and Dequeue never block. Write and Read are built on top of them:
// they spin for a while and then wait until the buffer is signaled as
// not full/not empty, closed, or the context is done.
type RingBuffer[T any] struct {
	// kind is the type of the internal buffer
	kind BufferKind

	capacity uint64
	maxSpins int

	_ cpu.CacheLinePad

	// buf is the non-blocking buffer implementation
	buf buffer[T]

	_ cpu.CacheLinePad

	// isClosed states whether the buffer is closed.
	isClosed atomic.Bool

	// writers is the number of Enqueue/Write calls admitted before the close
	// and not returned yet.
	writers atomic.Int64

	_ cpu.CacheLinePad

	// isFull states whether a writer may be waiting for space.
	isFull atomic.Bool

	_ cpu.CacheLinePad

	// isEmpty states whether a reader may be waiting for data.
	isEmpty atomic.Bool

	_ cpu.CacheLinePad

	// notEmpty and notFull are used to signal that the buffer is not empty or full
	notEmpty *sync.Cond
	notFull  *sync.Cond
	mux      *sync.Mutex
}

// NewRingBuffer returns a new ring buffer with the given number of slots.
// It returns [ErrInvalidCapacity] when capacity is zero.
func NewRingBuffer[T any](capacity uint32, kind BufferKind) (*RingBuffer[T], error) {
	cfg := NewConfig()
	cfg.Capacity = capacity
	cfg.Kind = kind

	return NewRingBufferFromConfig[T](cfg)
}

// NewRingBufferFromConfig returns a new ring buffer built from the given configuration.
// The configuration is expected to be already validated.
func NewRingBufferFromConfig[T any](cfg *Config) (*RingBuffer[T], error) {
	if cfg.Capacity == 0 {
		return nil, ErrInvalidCapacity
	}

	capacity := uint64(cfg.Capacity)

	buf, err := newBuffer[T](capacity, cfg.Kind)
	if err != nil {
		return nil, err
	}

	mux := &sync.Mutex{}

	return &RingBuffer[T]{
		kind: cfg.Kind,

		capacity: capacity,
		maxSpins: cfg.MaxSpins,

		buf: buf,

		mux:      mux,
		notEmpty: sync.NewCond(mux),
		notFull:  sync.NewCond(mux),
	}, nil
}

// signalNotEmpty wakes up the waiting readers, if any.
func (rb *RingBuffer[T]) signalNotEmpty() {
	if rb.isEmpty.CompareAndSwap(true, false) {
		rb.mux.Lock()
		rb.notEmpty.Broadcast()
		rb.mux.Unlock()
	}
}

// signalNotFull wakes up the waiting writers, if any.
func (rb *RingBuffer[T]) signalNotFull() {
	if rb.isFull.CompareAndSwap(true, false) {
		rb.mux.Lock()
		rb.notFull.Broadcast()
		rb.mux.Unlock()
	}
}

func (rb *RingBuffer[T]) tryPush(item T) bool {
	if !rb.buf.push(item) {
		return false
	}

	rb.signalNotEmpty()
	return true
}

func (rb *RingBuffer[T]) tryPop() (T, bool) {
	item, ok := rb.buf.pop()
	if !ok {
		return item, false
	}

	rb.signalNotFull()
	return item, true
}

// beginWrite admits a writer, unless the buffer is closed.
// An admitted writer must call endWrite when it returns.
func (rb *RingBuffer[T]) beginWrite() bool {
	rb.writers.Add(1)

	if rb.isClosed.Load() {
		rb.endWrite()
		return false
	}

	return true
}

// endWrite releases an admitted writer. The last writer returning
// after the close wakes the readers waiting for its item.
func (rb *RingBuffer[T]) endWrite() {
	if rb.writers.Add(-1) == 0 && rb.isClosed.Load() {
		rb.mux.Lock()
		rb.notEmpty.Broadcast()
		rb.mux.Unlock()
	}
}

// isDrained states whether the buffer is closed and no admitted writer
// can still add an item. The caller must retry the pop once more
// after it returns true.
func (rb *RingBuffer[T]) isDrained() bool {
	return rb.isClosed.Load() && rb.writers.Load() == 0
}

// wait parks the caller on the condition until it is signaled
// or the context is done. It must be called with the mutex held.
func (rb *RingBuffer[T]) wait(ctx context.Context, cond *sync.Cond) {
	stop := context.AfterFunc(ctx, func() {
		rb.mux.Lock()
		defer rb.mux.Unlock()

		cond.Broadcast()
	})
	defer stop()

	cond.Wait()
}

// Enqueue adds the item to the buffer without blocking.
// If the buffer is full, it returns a [*FullError] (matching [ErrFull])
// that carries the rejected item.
func (rb *RingBuffer[T]) Enqueue(item T) error {
	if !rb.beginWrite() {
		return ErrClosed
	}
	defer rb.endWrite()

	if !rb.tryPush(item) {
		return &FullError[T]{Value: item}
	}

	return nil
}

// Dequeue removes and returns the oldest item without blocking.
// It returns [ErrEmpty] if the buffer is empty, or [ErrClosed] if the buffer
// is empty, closed, and no write started before the close is still running.
func (rb *RingBuffer[T]) Dequeue() (T, error) {
	item, ok := rb.tryPop()
	if ok {
		return item, nil
	}

	if rb.isDrained() {
		if item, ok = rb.tryPop(); ok {
			return item, nil
		}
		return item, ErrClosed
	}

	return item, ErrEmpty
}

// Write adds the item to the buffer, waiting for a free slot if the buffer is full.
// It returns [ErrClosed] if the buffer is closed, or the context error
// if the context is done before a slot is freed.
func (rb *RingBuffer[T]) Write(ctx context.Context, item T) error {
	if !rb.beginWrite() {
		return ErrClosed
	}
	defer rb.endWrite()

	for range rb.maxSpins {
		if rb.tryPush(item) {
			return nil
		}

		// The buffer is full, yield to other goroutines
		runtime.Gosched()
	}

	rb.mux.Lock()

	for {
		if rb.isClosed.Load() {
			rb.mux.Unlock()
			return ErrClosed
		}

		// Set buffer as full before the last attempt,
		// so a reader freeing a slot after it has to signal
		rb.isFull.Store(true)

		if rb.buf.push(item) {
			break
		}

		if err := ctx.Err(); err != nil {
			rb.mux.Unlock()
			return err
		}

		// Wait for space
		rb.wait(ctx, rb.notFull)
	}

	rb.mux.Unlock()

	rb.signalNotEmpty()

	return nil
}

// Read removes and returns the oldest item, waiting for data if the buffer is empty.
// Items still in a closed buffer are returned; once it is drained [ErrClosed] is returned.
// If the context is done before data arrives, the context error is returned.
func (rb *RingBuffer[T]) Read(ctx context.Context) (T, error) {
	for range rb.maxSpins {
		if item, ok := rb.tryPop(); ok {
			return item, nil
		}

		// The buffer is empty, yield to other goroutines
		runtime.Gosched()
	}

	rb.mux.Lock()

	var item T
	for {
		// Set buffer as empty before the last attempt,
		// so a writer publishing an item after it has to signal
		rb.isEmpty.Store(true)

		var ok bool
		if item, ok = rb.buf.pop(); ok {
			break
		}

		if rb.isDrained() {
			if item, ok = rb.buf.pop(); ok {
				break
			}

			rb.mux.Unlock()
			return item, ErrClosed
		}

		if err := ctx.Err(); err != nil {
			rb.mux.Unlock()
			return item, err
		}

		// Wait for data
		rb.wait(ctx, rb.notEmpty)
	}

	rb.mux.Unlock()

	rb.signalNotFull()

	return item, nil
}

// Len returns the number of items in the buffer.
func (rb *RingBuffer[T]) Len() uint32 {
	return uint32(rb.buf.len())
}

// Cap returns the number of slots of the buffer.
// The buffer holds at most Cap()-1 items.
func (rb *RingBuffer[T]) Cap() uint32 {
	return uint32(rb.capacity)
}

// IsEmpty states whether the buffer has no items.
func (rb *RingBuffer[T]) IsEmpty() bool {
	return rb.buf.len() == 0
}

// IsFull states whether the buffer holds Cap()-1 items.
func (rb *RingBuffer[T]) IsFull() bool {
	return rb.buf.len() == rb.capacity-1
}

// Head returns the slot index of the oldest item, in the [0, Cap()) range.
func (rb *RingBuffer[T]) Head() uint32 {
	head, _ := rb.buf.positions()
	return uint32(head % rb.capacity)
}

// Tail returns the slot index of the next write, in the [0, Cap()) range.
func (rb *RingBuffer[T]) Tail() uint32 {
	_, tail := rb.buf.positions()
	return uint32(tail % rb.capacity)
}

// Kind returns the kind of the buffer.
func (rb *RingBuffer[T]) Kind() BufferKind {
	return rb.kind
}

// IsClosed states whether the buffer is closed.
func (rb *RingBuffer[T]) IsClosed() bool {
	return rb.isClosed.Load()
}

// Close closes the buffer and wakes up every waiting reader and writer.
func (rb *RingBuffer[T]) Close() {
	if !rb.isClosed.CompareAndSwap(false, true) {
		return
	}

	rb.mux.Lock()
	rb.notEmpty.Broadcast()
	rb.notFull.Broadcast()
	rb.mux.Unlock()
}
