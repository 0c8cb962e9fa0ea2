package stress

import (
	"log/slog"
	"time"

	"github.com/FerroO2000/mpmcring/internal/rb"
)

// Report is the outcome of a stress run.
type Report struct {
	Kind     rb.BufferKind
	Capacity uint32

	Producers  int
	MaxWorkers int

	// Produced is the number of values written into the ring buffer.
	Produced int64
	// Consumed is the number of values read by the collector.
	Consumed int64

	// Duplicates is the number of extra copies of values read more than once.
	Duplicates int64
	// Missing is the number of written values never read.
	Missing int64

	// HandlerErrors is the number of values the workers failed to forward.
	HandlerErrors int64

	Duration time.Duration
}

// OK states whether the multiset of consumed values
// equals the multiset of produced ones.
func (r *Report) OK() bool {
	return r.Produced == r.Consumed && r.Duplicates == 0 && r.Missing == 0
}

// Throughput returns the consumed items per second.
func (r *Report) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Consumed) / r.Duration.Seconds()
}

// LogValue implements [slog.LogValuer].
func (r *Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", r.Kind.String()),
		slog.Any("capacity", r.Capacity),
		slog.Int("producers", r.Producers),
		slog.Int("max_workers", r.MaxWorkers),
		slog.Int64("produced", r.Produced),
		slog.Int64("consumed", r.Consumed),
		slog.Int64("duplicates", r.Duplicates),
		slog.Int64("missing", r.Missing),
		slog.Int64("handler_errors", r.HandlerErrors),
		slog.Duration("duration", r.Duration),
		slog.Int("items_per_sec", int(r.Throughput())),
		slog.Bool("ok", r.OK()),
	)
}

// tally counts how many times each value has been consumed.
type tally struct {
	seen     []uint32
	consumed int64
}

func newTally(total int) *tally {
	return &tally{
		seen: make([]uint32, total),
	}
}

func (t *tally) add(val int) {
	t.consumed++

	if val < 0 || val >= len(t.seen) {
		return
	}
	t.seen[val]++
}

func (t *tally) fill(r *Report) {
	r.Consumed = t.consumed

	for _, count := range t.seen {
		switch {
		case count == 0:
			r.Missing++
		case count > 1:
			r.Duplicates += int64(count - 1)
		}
	}
}
