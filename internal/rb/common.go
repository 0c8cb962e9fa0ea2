package rb

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// buffer is the non-blocking core implemented by every buffer kind.
type buffer[T any] interface {
	push(item T) bool
	pop() (T, bool)
	len() uint64
	positions() (head, tail uint64)
}

// slot couples a payload with its sequence stamp.
//
// For the position pos mapped on the slot, the stamp is:
//   - pos when the slot is free and can be written,
//   - pos+1 when the payload has been published,
//   - pos+capacity when the payload has been consumed (free for the next lap).
type slot[T any] struct {
	seq  atomic.Uint64
	data T
}

func newSlots[T any](capacity uint64) []slot[T] {
	slots := make([]slot[T], capacity)
	for idx := range slots {
		slots[idx].seq.Store(uint64(idx))
	}
	return slots
}

// commonBuffer holds the monotonic head/tail positions shared by the buffer kinds.
// The slot index of a position is position mod capacity.
type commonBuffer struct {
	// head is the position of the next item to be read
	head atomic.Uint64

	_ cpu.CacheLinePad

	// tail is the position of the next slot to be written
	tail atomic.Uint64

	_ cpu.CacheLinePad

	capacity uint64
	capMask  uint64
	isPow2   bool

	// maxLen is the number of usable slots, one slot is always kept free
	maxLen uint64

	_ cpu.CacheLinePad
}

func newCommonBuffer(capacity uint64) *commonBuffer {
	return &commonBuffer{
		capacity: capacity,
		capMask:  capacity - 1,
		isPow2:   isPowerOf2(capacity),
		maxLen:   capacity - 1,
	}
}

func (cb *commonBuffer) index(pos uint64) uint64 {
	if cb.isPow2 {
		return pos & cb.capMask
	}
	return pos % cb.capacity
}

func (cb *commonBuffer) len() uint64 {
	// Head is loaded first, so the tail can only be greater or equal
	head := cb.head.Load()
	tail := cb.tail.Load()

	if tail <= head {
		return 0
	}

	return min(tail-head, cb.maxLen)
}

func (cb *commonBuffer) positions() (uint64, uint64) {
	head := cb.head.Load()
	tail := cb.tail.Load()

	return head, max(head, tail)
}

func isPowerOf2(n uint64) bool {
	return n > 0 && n&(n-1) == 0
}
