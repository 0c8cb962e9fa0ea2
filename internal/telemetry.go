// Package internal contains the telemetry (logs, metrics and traces)
// shared by the components of the library.
package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationScope = "github.com/FerroO2000/mpmcring"

var (
	logLevel = &slog.LevelVar{}

	consoleMux     sync.Mutex
	consoleOut     io.Writer = colorable.NewColorableStderr()
	consoleNoColor           = !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd())
)

// SetLogLevel sets the minimum level of the console logs.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetConsoleOutput sets the writer used by the console logs
// of the telemetry instances created afterwards.
func SetConsoleOutput(w io.Writer, noColor bool) {
	consoleMux.Lock()
	defer consoleMux.Unlock()

	consoleOut = w
	consoleNoColor = noColor
}

func newConsoleHandler() slog.Handler {
	consoleMux.Lock()
	defer consoleMux.Unlock()

	return tint.NewHandler(consoleOut, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    consoleNoColor,
	})
}

// Telemetry is the entrypoint of a component for logs, metrics and traces.
// Logs are written both to the console and to the OpenTelemetry log bridge.
type Telemetry struct {
	logger *slog.Logger

	tracer trace.Tracer
	meter  metric.Meter

	metricAttrs metric.MeasurementOption
}

// NewTelemetry returns the telemetry for the component
// of the given kind (e.g. "connector") and name.
func NewTelemetry(kind, name string) *Telemetry {
	scope := instrumentationScope + "/" + kind

	handler := newFanoutHandler(
		newConsoleHandler(),
		otelslog.NewHandler(scope),
	)

	return &Telemetry{
		logger: slog.New(handler).With("kind", kind, "name", name),

		tracer: otel.GetTracerProvider().Tracer(scope),
		meter:  otel.GetMeterProvider().Meter(scope),

		metricAttrs: metric.WithAttributeSet(attribute.NewSet(
			attribute.String("kind", kind),
			attribute.String("name", name),
		)),
	}
}

// LogInfo logs an info message.
func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.logger.Info(msg, args...)
}

// LogWarn logs a warning message.
func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.logger.Warn(msg, args...)
}

// LogError logs an error message.
func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.logger.Error(msg, append([]any{tint.Err(err)}, args...)...)
}

// NewTrace starts a new span.
func (t *Telemetry) NewTrace(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName)
}

// NewCounter registers a monotonic counter whose value is read from fn
// every time the metrics are collected.
func (t *Telemetry) NewCounter(name string, fn func() int64) {
	_, err := t.meter.Int64ObservableCounter(name,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(fn(), t.metricAttrs)
			return nil
		}),
	)

	if err != nil {
		t.LogError("failed to create counter", err, "counter", name)
	}
}

// NewUpDownCounter registers a counter that can decrease whose value is read from fn
// every time the metrics are collected.
func (t *Telemetry) NewUpDownCounter(name string, fn func() int64) {
	_, err := t.meter.Int64ObservableUpDownCounter(name,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(fn(), t.metricAttrs)
			return nil
		}),
	)

	if err != nil {
		t.LogError("failed to create up-down counter", err, "counter", name)
	}
}

// Histogram records a distribution of values.
type Histogram struct {
	hist  metric.Int64Histogram
	attrs metric.MeasurementOption
}

// Record records a value.
func (h *Histogram) Record(ctx context.Context, value int64) {
	h.hist.Record(ctx, value, h.attrs)
}

// NewHistogram returns a new histogram with the given unit (e.g. "ns").
func (t *Telemetry) NewHistogram(name, unit string) *Histogram {
	hist, err := t.meter.Int64Histogram(name, metric.WithUnit(unit))
	if err != nil {
		t.LogError("failed to create histogram", err, "histogram", name)
		hist = noop.Int64Histogram{}
	}

	return &Histogram{
		hist:  hist,
		attrs: t.metricAttrs,
	}
}

////////////////
//  HANDLERS  //
////////////////

// fanoutHandler dispatches every record to all the enabled handlers.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{
		handlers: handlers,
	}
}

func (fh *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range fh.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (fh *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range fh.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}

		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (fh *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, 0, len(fh.handlers))
	for _, h := range fh.handlers {
		handlers = append(handlers, h.WithAttrs(attrs))
	}
	return newFanoutHandler(handlers...)
}

func (fh *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, 0, len(fh.handlers))
	for _, h := range fh.handlers {
		handlers = append(handlers, h.WithGroup(name))
	}
	return newFanoutHandler(handlers...)
}
