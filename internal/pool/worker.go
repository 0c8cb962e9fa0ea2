package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/mpmcring/internal"
	"github.com/FerroO2000/mpmcring/internal/rb"
)

// Source is the queue consumed by the workers.
type Source[T any] interface {
	Read(ctx context.Context) (T, error)
	Len() int
}

// Handler is called by a worker for every item read from the source.
type Handler[T any] func(ctx context.Context, workerID int, item T) error

type workerMetrics struct {
	processedItems   atomic.Int64
	processingErrors atomic.Int64
	activeWorkers    atomic.Int64

	processingTime *internal.Histogram
}

func newWorkerMetrics(tel *internal.Telemetry) *workerMetrics {
	m := &workerMetrics{}

	tel.NewCounter("worker_pool_processed_items", func() int64 {
		return m.processedItems.Load()
	})

	tel.NewCounter("worker_pool_processing_errors", func() int64 {
		return m.processingErrors.Load()
	})

	tel.NewUpDownCounter("worker_pool_active_workers", func() int64 {
		return m.activeWorkers.Load()
	})

	m.processingTime = tel.NewHistogram("worker_pool_processing_time", "ns")

	return m
}

// Workers is a resizable set of goroutines consuming a [Source].
// A worker exits when the source is closed and drained.
type Workers[T any] struct {
	tel *internal.Telemetry

	cfg *Config

	source  Source[T]
	handler Handler[T]

	scaler *Scaler

	ctx context.Context

	mux          sync.Mutex
	stopChList   []chan struct{}
	sourceClosed bool

	wg *sync.WaitGroup

	metrics *workerMetrics
}

// NewWorkers returns a new worker set. The configuration
// is expected to be already validated.
func NewWorkers[T any](tel *internal.Telemetry, cfg *Config, source Source[T], handler Handler[T]) *Workers[T] {
	w := &Workers[T]{
		tel: tel,

		cfg: cfg,

		source:  source,
		handler: handler,

		stopChList: make([]chan struct{}, cfg.MaxWorkers),

		wg: &sync.WaitGroup{},

		metrics: newWorkerMetrics(tel),
	}

	w.scaler = NewScaler(tel, cfg, w)

	return w
}

// Run starts the initial workers and the auto-scaler.
// It does not block: use [Workers.Wait] to wait for the workers to exit.
func (w *Workers[T]) Run(ctx context.Context) {
	w.tel.LogInfo("running workers", "initial_workers", w.cfg.InitialWorkers)

	w.mux.Lock()
	w.ctx = ctx
	w.mux.Unlock()

	w.Resize(w.cfg.InitialWorkers)

	go w.scaler.Run(ctx)
}

// Count returns the number of running workers.
func (w *Workers[T]) Count() int {
	w.mux.Lock()
	defer w.mux.Unlock()

	return w.count()
}

func (w *Workers[T]) count() int {
	count := 0
	for _, stopCh := range w.stopChList {
		if stopCh != nil {
			count++
		}
	}
	return count
}

// Pending returns the number of items waiting in the source.
func (w *Workers[T]) Pending() int {
	return w.source.Len()
}

// Resize starts or stops workers until target workers are running.
// The target is clamped between the minimum and the maximum number of workers.
// It returns the number of running workers.
func (w *Workers[T]) Resize(target int) int {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.ctx == nil || w.ctx.Err() != nil || w.sourceClosed {
		return w.count()
	}

	target = min(max(target, w.cfg.MinWorkers), w.cfg.MaxWorkers)

	curr := w.count()

	// Fill the lowest free slots
	for id := 0; curr < target && id < len(w.stopChList); id++ {
		if w.stopChList[id] != nil {
			continue
		}

		stopCh := make(chan struct{})
		w.stopChList[id] = stopCh

		w.wg.Add(1)
		go w.runWorker(w.ctx, id, stopCh)

		curr++
	}

	// Stop the highest running slots
	for id := len(w.stopChList) - 1; curr > target && id >= 0; id-- {
		if w.stopChList[id] == nil {
			continue
		}

		close(w.stopChList[id])
		w.stopChList[id] = nil

		curr--
	}

	return curr
}

// release frees the slot of a worker that exited on its own.
func (w *Workers[T]) release(id int, stopCh chan struct{}) {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.stopChList[id] == stopCh {
		w.stopChList[id] = nil
	}
}

// markSourceClosed prevents new workers from being started.
func (w *Workers[T]) markSourceClosed() {
	w.mux.Lock()
	defer w.mux.Unlock()

	w.sourceClosed = true
}

func (w *Workers[T]) runWorker(ctx context.Context, id int, stopCh chan struct{}) {
	defer w.wg.Done()
	defer w.release(id, stopCh)

	w.metrics.activeWorkers.Add(1)
	defer w.metrics.activeWorkers.Add(-1)

	w.tel.LogInfo("starting worker", "worker_id", id)
	defer w.tel.LogInfo("worker stopped", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return

		case <-stopCh:
			return

		default:
		}

		item, err := w.source.Read(ctx)
		if err != nil {
			switch {
			case errors.Is(err, rb.ErrReadTimeout):
				continue

			case errors.Is(err, rb.ErrClosed):
				w.markSourceClosed()
				return

			case ctx.Err() != nil:
				return
			}

			w.tel.LogError("failed to read item", err, "worker_id", id)
			continue
		}

		w.process(ctx, id, item)
	}
}

func (w *Workers[T]) process(ctx context.Context, id int, item T) {
	start := time.Now()
	defer func() {
		w.metrics.processingTime.Record(ctx, time.Since(start).Nanoseconds())
	}()

	w.metrics.processedItems.Add(1)

	if err := w.handler(ctx, id, item); err != nil {
		w.tel.LogError("failed to process item", err, "worker_id", id)
		w.metrics.processingErrors.Add(1)
	}
}

// Wait blocks until every worker has exited.
func (w *Workers[T]) Wait() {
	w.wg.Wait()
}

// Processed returns the number of items handled by the workers.
func (w *Workers[T]) Processed() int64 {
	return w.metrics.processedItems.Load()
}

// Errors returns the number of items whose handler returned an error.
func (w *Workers[T]) Errors() int64 {
	return w.metrics.processingErrors.Load()
}
