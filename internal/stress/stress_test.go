package stress

import (
	"context"
	"testing"
	"time"

	"github.com/FerroO2000/mpmcring/internal"
	"github.com/FerroO2000/mpmcring/internal/config"
	"github.com/FerroO2000/mpmcring/internal/rb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestConfig(kind rb.BufferKind, producers, workers int) *Config {
	cfg := DefaultConfig()

	cfg.Ring.Kind = kind
	cfg.Ring.Capacity = 64

	cfg.Producers = producers
	cfg.ItemsPerProducer = 5_000
	cfg.ReadTimeout = 10 * time.Millisecond

	cfg.Pool.InitialWorkers = workers
	cfg.Pool.MinWorkers = 1
	cfg.Pool.MaxWorkers = workers
	cfg.Pool.OutputQueueSize = 128
	cfg.Pool.AutoScaleInterval = 5 * time.Millisecond

	return cfg
}

func Test_Run(t *testing.T) {
	cases := []struct {
		kind               rb.BufferKind
		producers, workers int
	}{
		{rb.BufferKindSPSC, 1, 1},
		{rb.BufferKindMPSC, 4, 1},
		{rb.BufferKindSPMC, 1, 4},
		{rb.BufferKindMPMC, 4, 4},
		{rb.BufferKindMutex, 4, 4},
	}

	for _, tCase := range cases {
		t.Run(tCase.kind.String(), func(t *testing.T) {
			assert := assert.New(t)

			cfg := newTestConfig(tCase.kind, tCase.producers, tCase.workers)

			report, err := Run(t.Context(), cfg)
			require.NoError(t, err)

			total := int64(tCase.producers * cfg.ItemsPerProducer)

			assert.True(report.OK())
			assert.Equal(total, report.Produced)
			assert.Equal(total, report.Consumed)
			assert.Zero(report.Duplicates)
			assert.Zero(report.Missing)
			assert.Zero(report.HandlerErrors)
			assert.Positive(report.Throughput())
		})
	}
}

func Test_RunCancelled(t *testing.T) {
	assert := assert.New(t)

	ctx, cancelCtx := context.WithCancel(t.Context())
	cancelCtx()

	report, err := Run(ctx, newTestConfig(rb.BufferKindMPMC, 2, 2))
	assert.ErrorIs(err, context.Canceled)
	assert.False(report.OK())
	assert.Less(report.Produced, int64(2*5_000))
}

func Test_ConfigValidate(t *testing.T) {
	assert := assert.New(t)

	validator := config.NewValidator(internal.NewTelemetry("test", "stress_config"))

	// Single producer and single consumer
	cfg := newTestConfig(rb.BufferKindSPSC, 4, 4)
	cfg.Ring.Capacity = 0
	cfg.ItemsPerProducer = 0

	assert.Equal(5, validator.Validate(cfg))
	assert.Equal(uint32(rb.DefaultCapacity), cfg.Ring.Capacity)
	assert.Equal(1, cfg.Producers)
	assert.Equal(1, cfg.ItemsPerProducer)
	assert.Equal(1, cfg.Pool.MaxWorkers)
	assert.Equal(1, cfg.Pool.InitialWorkers)

	// Multi producer and multi consumer
	cfg = newTestConfig(rb.BufferKindMPMC, 4, 4)
	assert.Zero(validator.Validate(cfg))
	assert.Equal(4, cfg.Producers)
	assert.Equal(4, cfg.Pool.MaxWorkers)

	// A single slot ring would block the producers forever
	cfg = newTestConfig(rb.BufferKindMPMC, 2, 2)
	cfg.Ring.Capacity = 1
	cfg.Pool.OutputQueueSize = 1

	assert.Equal(2, validator.Validate(cfg))
	assert.Equal(uint32(2), cfg.Ring.Capacity)
	assert.Equal(2, cfg.Pool.OutputQueueSize)

	// Missing sub configurations
	cfg = &Config{Producers: 1, ItemsPerProducer: 1}
	assert.Zero(validator.Validate(cfg))
	assert.NotNil(cfg.Ring)
	assert.NotNil(cfg.Pool)
}

func Test_RunSmallestBuffers(t *testing.T) {
	cfg := newTestConfig(rb.BufferKindMPMC, 2, 2)
	cfg.Ring.Capacity = 1
	cfg.Pool.OutputQueueSize = 1
	cfg.ItemsPerProducer = 200

	ctx, cancelCtx := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancelCtx()

	report, err := Run(ctx, cfg)
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Equal(t, uint32(2), report.Capacity)
	assert.Equal(t, int64(400), report.Consumed)
}

func Test_ReportTally(t *testing.T) {
	assert := assert.New(t)

	tl := newTally(4)
	for _, val := range []int{0, 1, 1, 1, 3} {
		tl.add(val)
	}

	report := &Report{Produced: 4}
	tl.fill(report)

	assert.Equal(int64(5), report.Consumed)
	assert.Equal(int64(2), report.Duplicates)
	assert.Equal(int64(1), report.Missing)
	assert.False(report.OK())
	assert.Zero(report.Throughput())
}

func Test_RunTrace(t *testing.T) {
	assert := assert.New(t)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	prevProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(prevProvider)

	cfg := newTestConfig(rb.BufferKindMPMC, 2, 2)
	cfg.ItemsPerProducer = 100

	_, err := Run(t.Context(), cfg)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	assert.Equal("stress run", spans[0].Name())
	assert.Contains(spans[0].Attributes(), attribute.Int64("consumed", 200))
}
