package rb

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type concurrencyCase struct {
	kind             BufferKind
	prodNum, consNum int
}

var concurrencySuite = []concurrencyCase{
	{BufferKindSPSC, 1, 1},
	{BufferKindMPSC, 1, 1},
	{BufferKindMPSC, 8, 1},
	{BufferKindSPMC, 1, 1},
	{BufferKindSPMC, 1, 8},
	{BufferKindMPMC, 1, 1},
	{BufferKindMPMC, 1, 8},
	{BufferKindMPMC, 8, 1},
	{BufferKindMPMC, 8, 8},
	{BufferKindMutex, 4, 4},
}

func Test_bufferImplementations(t *testing.T) {
	const (
		capacity = 100
		items    = 80_000
	)

	for _, tCase := range concurrencySuite {
		tName := fmt.Sprintf("%s-P%d-C%d", tCase.kind, tCase.prodNum, tCase.consNum)

		t.Run(tName, func(t *testing.T) {
			buf, err := newBuffer[int](capacity, tCase.kind)
			assert.NoError(t, err)

			testBuffer(t, buf, tCase.prodNum, tCase.consNum, items)
		})
	}
}

func testBuffer(t *testing.T, buffer buffer[int], prodNum, consNum, items int) {
	assert := assert.New(t)

	pushWg := &sync.WaitGroup{}
	pushWg.Add(prodNum)

	valueMap := &sync.Map{}
	for val := range items {
		valueMap.Store(val, true)
	}

	var skippedPush atomic.Int64
	var skippedPop atomic.Int64
	var lenViolations atomic.Int64

	itemsPerProducer := items / prodNum
	for idx := range prodNum {
		go func(idx int) {
			defer pushWg.Done()

			baseVal := idx * itemsPerProducer
			produced := 0
			for {
				if !buffer.push(baseVal + produced) {
					skippedPush.Add(1)
					continue
				}

				produced++
				if produced == itemsPerProducer {
					break
				}
			}
		}(idx)
	}

	popWg := &sync.WaitGroup{}
	popWg.Add(consNum)

	var totalConsumed atomic.Int64

	itemsPerConsumer := items / consNum
	for range consNum {
		go func() {
			defer popWg.Done()

			consumed := 0
			for {
				if buffer.len() > capacityOf(buffer)-1 {
					lenViolations.Add(1)
				}

				val, ok := buffer.pop()
				if !ok {
					skippedPop.Add(1)
					continue
				}

				// Every value must be consumed exactly once
				assert.True(valueMap.CompareAndSwap(val, true, false))
				totalConsumed.Add(1)

				consumed++
				if consumed == itemsPerConsumer {
					break
				}
			}
		}()
	}

	pushWg.Wait()
	t.Log("Producers done")

	popWg.Wait()
	t.Log("Consumers done")

	t.Logf("Total consumed items: %d", totalConsumed.Load())
	t.Logf("Skipped push call: %d", skippedPush.Load())
	t.Logf("Skipped pop call: %d", skippedPop.Load())

	assert.Equal(int64(items), totalConsumed.Load())
	assert.Zero(lenViolations.Load())
	assert.Zero(buffer.len())
}

func capacityOf[T any](buf buffer[T]) uint64 {
	switch b := buf.(type) {
	case *spscBuffer[T]:
		return b.capacity
	case *mpscBuffer[T]:
		return b.capacity
	case *spmcBuffer[T]:
		return b.capacity
	case *mpmcBuffer[T]:
		return b.capacity
	case *mutexBuffer[T]:
		return b.capacity
	default:
		return 0
	}
}

// Test_FIFOPerProducer checks that the values of a single producer
// are consumed in the same order they were written.
func Test_FIFOPerProducer(t *testing.T) {
	const (
		capacity = 64
		items    = 50_000
		prodNum  = 4
	)

	for _, kind := range []BufferKind{BufferKindMPSC, BufferKindMPMC, BufferKindMutex} {
		t.Run(kind.String(), func(t *testing.T) {
			buf, err := newBuffer[[2]int](capacity, kind)
			assert.NoError(t, err)

			wg := &sync.WaitGroup{}
			wg.Add(prodNum)

			for prodID := range prodNum {
				go func() {
					defer wg.Done()

					for seq := 0; seq < items; {
						if buf.push([2]int{prodID, seq}) {
							seq++
						}
					}
				}()
			}

			lastSeq := make([]int, prodNum)
			for idx := range lastSeq {
				lastSeq[idx] = -1
			}

			for consumed := 0; consumed < prodNum*items; {
				item, ok := buf.pop()
				if !ok {
					continue
				}

				prodID, seq := item[0], item[1]
				assert.Equal(t, lastSeq[prodID]+1, seq)
				lastSeq[prodID] = seq

				consumed++
			}

			wg.Wait()
		})
	}
}

func Test_RingBuffer(t *testing.T) {
	const (
		capacity   = 1024
		totalItems = 400_000
	)

	for _, tCase := range concurrencySuite {
		tName := fmt.Sprintf("%s-P%d-C%d", tCase.kind, tCase.prodNum, tCase.consNum)

		t.Run(tName, func(t *testing.T) {
			testRingBuffer(t, tCase.kind, capacity, tCase.prodNum, tCase.consNum, totalItems)
		})
	}
}

func testRingBuffer(t *testing.T, kind BufferKind, capacity, prodNum, consNum, totalItems int) {
	assert := assert.New(t)

	ring, err := NewRingBuffer[int](uint32(capacity), kind)
	assert.NoError(err)

	// hits[val] counts how many times val has been read
	hits := make([]atomic.Uint32, totalItems)

	consWg := &sync.WaitGroup{}
	consWg.Add(consNum)

	for range consNum {
		go func() {
			defer consWg.Done()

			for {
				val, err := ring.Read(t.Context())
				if err != nil {
					assert.ErrorIs(err, ErrClosed)
					return
				}
				hits[val].Add(1)
			}
		}()
	}

	startTime := time.Now()

	prodWg := &sync.WaitGroup{}
	prodWg.Add(prodNum)

	chunk := totalItems / prodNum
	for prodID := range prodNum {
		go func() {
			defer prodWg.Done()

			for val := prodID * chunk; val < (prodID+1)*chunk; val++ {
				if err := ring.Write(t.Context(), val); err != nil {
					assert.NoError(err)
					return
				}
			}
		}()
	}

	prodWg.Wait()
	ring.Close()
	consWg.Wait()

	elapsed := time.Since(startTime)

	var missing, duplicated int
	for val := range hits {
		switch hits[val].Load() {
		case 0:
			missing++
		case 1:
		default:
			duplicated++
		}
	}

	assert.Zero(missing)
	assert.Zero(duplicated)
	assert.True(ring.IsEmpty())

	t.Logf("%d items in %v (%.0f items/sec)", totalItems, elapsed, float64(totalItems)/elapsed.Seconds())
}

func Benchmark_RingBuffers(b *testing.B) {
	b.ReportAllocs()

	capacities := []int{512, 1024, 4096}
	for _, kind := range allKinds {
		kindStr := kind.String()

		for _, capacity := range capacities {
			capacityStr := strconv.Itoa(capacity)

			b.Run("WriteReadCycle-"+kindStr+"-"+capacityStr, func(b *testing.B) {
				benchWriteReadCycle(b, kind, capacity)
			})

			b.Run("WriteReadSteady-"+kindStr+"-"+capacityStr, func(b *testing.B) {
				benchWriteReadSteady(b, kind, capacity)
			})
		}
	}
}

func Benchmark_RingBuffers_Contention(b *testing.B) {
	capacity := 4096

	for _, kind := range []BufferKind{BufferKindSPSC, BufferKindMPMC, BufferKindMutex} {
		b.Run("Mixed-"+kind.String(), func(b *testing.B) {
			benchContention(b, capacity, kind, 1, 1)
		})
	}

	contentions := []int{2, 4, 8, 16}
	for _, kind := range []BufferKind{BufferKindMPMC, BufferKindMutex} {
		for _, cont := range contentions {
			contStr := strconv.Itoa(cont)

			b.Run("Read-"+kind.String()+"-"+contStr, func(b *testing.B) {
				benchContention(b, capacity, kind, 1, cont)
			})

			b.Run("Write-"+kind.String()+"-"+contStr, func(b *testing.B) {
				benchContention(b, capacity, kind, cont, 1)
			})
		}
	}
}

func benchWriteReadCycle(b *testing.B, kind BufferKind, capacity int) {
	rb, err := NewRingBuffer[int](uint32(capacity), kind)
	if err != nil {
		b.Fatal(err)
	}

	// One slot is always kept free
	usable := capacity - 1

	cycles := (b.N + usable - 1) / usable
	remainder := b.N % usable
	if remainder == 0 {
		remainder = usable
	}

	b.ResetTimer()

	for cycleIdx := range cycles {
		itemsPerCycle := usable
		if cycleIdx == cycles-1 {
			itemsPerCycle = remainder
		}

		// Fill the buffer
		for val := range itemsPerCycle {
			if err := rb.Write(b.Context(), val); err != nil {
				b.Logf("Write error: %v,", err)
				continue
			}
		}

		// Empty the buffer
		for range itemsPerCycle {
			if _, err := rb.Read(b.Context()); err != nil {
				b.Logf("Read error: %v", err)
				continue
			}
		}
	}
}

func benchWriteReadSteady(b *testing.B, kind BufferKind, capacity int) {
	rb, err := NewRingBuffer[int](uint32(capacity), kind)
	if err != nil {
		b.Fatal(err)
	}

	val := 0
	for b.Loop() {
		if err := rb.Enqueue(val); err != nil {
			b.Logf("Enqueue error: %v,", err)
			continue
		}

		if _, err := rb.Dequeue(); err != nil {
			b.Logf("Dequeue error: %v", err)
			continue
		}

		val++
	}
}

func benchContention(b *testing.B, capacity int, kind BufferKind, numWriters, numReaders int) {
	rb, err := NewRingBuffer[int](uint32(capacity), kind)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	// Multiple writers
	itemsPerWriter := b.N / numWriters
	writerRemainder := b.N % numWriters

	var written atomic.Uint64

	for w := range numWriters {
		items := itemsPerWriter
		if w == 0 {
			items += writerRemainder
		}

		go func(count int) {
			for i := range count {
				if err := rb.Write(b.Context(), i); err != nil {
					b.Errorf("write error: %v", err)
					return
				}
				written.Add(1)
			}
		}(items)
	}

	var wg sync.WaitGroup
	wg.Add(numReaders)

	ctx, cancelCtx := context.WithTimeout(b.Context(), 30*time.Second)
	defer cancelCtx()

	// Multiple readers
	itemsPerReader := b.N / numReaders
	readerRemainder := b.N % numReaders

	var hasError atomic.Bool

	for r := range numReaders {
		items := itemsPerReader
		if r == 0 {
			items += readerRemainder
		}

		go func(target int) {
			defer wg.Done()
			count := 0

			for count < target {
				if _, err := rb.Read(ctx); err != nil {
					hasError.Store(true)
					b.Errorf("read error: %v", err)
					return
				}
				count++
			}
		}(items)
	}

	wg.Wait()

	if hasError.Load() {
		b.Logf("written %d over %d", written.Load(), b.N)
	}
}
