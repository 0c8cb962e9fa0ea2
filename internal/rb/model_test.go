package rb

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/eapache/queue"
	"github.com/stretchr/testify/assert"
)

// Test_ReferenceModel runs random operation sequences against
// the ring buffer and an unbounded FIFO queue used as a reference.
func Test_ReferenceModel(t *testing.T) {
	const opsPerRun = 5_000

	for _, kind := range allKinds {
		for _, capacity := range []uint32{1, 2, 3, 4, 10, 16} {
			t.Run(fmt.Sprintf("%s-N%d", kind, capacity), func(t *testing.T) {
				rng := rand.New(rand.NewPCG(uint64(capacity), uint64(kind)))

				rb := newTestRingBuffer[int](t, capacity, kind)
				model := queue.New()

				maxLen := int(capacity) - 1
				nextVal := 0

				for step := range opsPerRun {
					if rng.IntN(2) == 0 {
						err := rb.Enqueue(nextVal)

						if model.Length() == maxLen {
							rejected, ok := RejectedValue[int](err)
							assert.True(t, ok, "step %d: expected full", step)
							assert.Equal(t, nextVal, rejected)
						} else {
							assert.NoError(t, err, "step %d", step)
							model.Add(nextVal)
						}

						nextVal++

					} else {
						val, err := rb.Dequeue()

						if model.Length() == 0 {
							assert.ErrorIs(t, err, ErrEmpty, "step %d", step)
						} else {
							assert.NoError(t, err, "step %d", step)
							assert.Equal(t, model.Remove(), val, "step %d", step)
						}
					}

					assert.Equal(t, uint32(model.Length()), rb.Len(), "step %d", step)
					assertBounds(t, rb)
				}
			})
		}
	}
}
