// Package stress contains a harness that checks a ring buffer under
// concurrent producers and a scaled pool of consumers.
package stress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FerroO2000/mpmcring/connector"
	"github.com/FerroO2000/mpmcring/internal"
	"github.com/FerroO2000/mpmcring/internal/config"
	"github.com/FerroO2000/mpmcring/internal/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Run validates the configuration and runs the stress test.
// Producers write distinct values into the ring buffer, the workers
// forward every value read to a single collector through a fan-in.
//
// The report is returned even when the run fails, together with the error.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	tel := internal.NewTelemetry("stress", cfg.kindName())

	config.NewValidator(tel).Validate(cfg)

	ctx, span := tel.NewTrace(ctx, "stress run")
	defer span.End()

	report, err := run(ctx, tel, cfg)

	span.SetAttributes(
		attribute.String("kind", report.Kind.String()),
		attribute.Int64("produced", report.Produced),
		attribute.Int64("consumed", report.Consumed),
		attribute.Int64("duplicates", report.Duplicates),
		attribute.Int64("missing", report.Missing),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stress run failed")
	}

	return report, err
}

func (c *Config) kindName() string {
	if c.Ring == nil {
		return "default"
	}
	return c.Ring.Kind.String()
}

func run(ctx context.Context, tel *internal.Telemetry, cfg *Config) (*Report, error) {
	total := cfg.Producers * cfg.ItemsPerProducer

	report := &Report{
		Kind:       cfg.Ring.Kind,
		Capacity:   cfg.Ring.Capacity,
		Producers:  cfg.Producers,
		MaxWorkers: cfg.Pool.MaxWorkers,
	}

	source, err := connector.NewRingBufferFromConfig[int](cfg.Ring)
	if err != nil {
		return report, fmt.Errorf("failed to create ring buffer: %w", err)
	}
	source.SetReadTimeout(cfg.ReadTimeout)

	fanIn, err := pool.NewFanIn[int](cfg.Pool.OutputQueueSize)
	if err != nil {
		return report, fmt.Errorf("failed to create fan-in: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	workers := pool.NewWorkers(tel, cfg.Pool, source,
		func(ctx context.Context, _ int, item int) error {
			return fanIn.AddTask(ctx, item)
		},
	)

	// The collector is the only reader of the fan-in
	collected := newTally(total)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)

		for {
			val, err := fanIn.ReadTask(context.Background())
			if err != nil {
				return
			}
			collected.add(val)
		}
	}()

	tel.LogInfo("starting stress run",
		"capacity", cfg.Ring.Capacity, "producers", cfg.Producers,
		"items_per_producer", cfg.ItemsPerProducer, "max_workers", cfg.Pool.MaxWorkers)

	startTime := time.Now()

	workers.Run(runCtx)

	produced, prodErr := produce(runCtx, source, cfg.Producers, cfg.ItemsPerProducer)
	report.Produced = produced

	if prodErr != nil {
		cancelRun()
	}

	source.Close()
	workers.Wait()

	fanIn.Close()
	<-collectorDone

	report.Duration = time.Since(startTime)
	report.HandlerErrors = workers.Errors()
	collected.fill(report)

	if prodErr != nil {
		return report, prodErr
	}

	if !report.OK() {
		return report, fmt.Errorf("%w: produced %d, consumed %d, duplicates %d, missing %d",
			ErrMismatch, report.Produced, report.Consumed, report.Duplicates, report.Missing)
	}

	return report, nil
}

// produce writes the values [0, producers*itemsPerProducer) into the sink,
// each producer owning a contiguous range.
func produce(ctx context.Context, sink connector.Connector[int], producers, itemsPerProducer int) (int64, error) {
	wg := &sync.WaitGroup{}
	wg.Add(producers)

	written := make([]int64, producers)
	errs := make([]error, producers)

	for prodID := range producers {
		go func() {
			defer wg.Done()

			base := prodID * itemsPerProducer
			for idx := range itemsPerProducer {
				if err := sink.Write(ctx, base+idx); err != nil {
					errs[prodID] = fmt.Errorf("producer %d: %w", prodID, err)
					return
				}
				written[prodID]++
			}
		}()
	}

	wg.Wait()

	var total int64
	for _, count := range written {
		total += count
	}

	for _, err := range errs {
		if err != nil {
			return total, err
		}
	}

	return total, nil
}
