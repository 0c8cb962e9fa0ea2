// Command ringstress runs producers and a pool of consumers against
// a ring buffer and checks that every value written is read exactly once.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/FerroO2000/mpmcring/internal"
	"github.com/FerroO2000/mpmcring/internal/rb"
	"github.com/FerroO2000/mpmcring/internal/stress"
)

const envPrefix = "RINGSTRESS_"

type options struct {
	cfg *stress.Config

	logLevel slog.Level

	otelEndpoint string
	traceRatio   float64
}

func main() {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	cancelCtx()

	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	internal.SetLogLevel(opts.logLevel)
	tel := internal.NewTelemetry("cmd", "ringstress")

	if opts.otelEndpoint != "" {
		providers, err := initTelemetry(ctx, opts.otelEndpoint, opts.traceRatio)
		if err != nil {
			tel.LogWarn("telemetry export disabled", "endpoint", opts.otelEndpoint, "reason", err)
		} else {
			defer func() {
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelShutdown()

				if err := providers.shutdown(shutdownCtx); err != nil {
					tel.LogError("failed to shutdown telemetry", err)
				}
			}()
		}
	}

	report, err := stress.Run(ctx, opts.cfg)
	if err != nil {
		tel.LogError("stress run failed", err, "report", report)
		return 1
	}

	tel.LogInfo("stress run completed", "report", report)

	return 0
}

func parseOptions(args []string) (*options, error) {
	cfg := stress.DefaultConfig()

	fs := flag.NewFlagSet("ringstress", flag.ContinueOnError)

	kindName := fs.String("kind", envString("KIND", cfg.Ring.Kind.String()), "buffer kind (spsc, mpsc, spmc, mpmc, mutex)")
	capacity := fs.Uint("capacity", envUint("CAPACITY", uint(cfg.Ring.Capacity)), "number of slots of the ring buffer")
	fs.IntVar(&cfg.Ring.MaxSpins, "spins", envInt("SPINS", cfg.Ring.MaxSpins), "non-blocking attempts before waiting")

	fs.IntVar(&cfg.Producers, "producers", envInt("PRODUCERS", cfg.Producers), "number of producers")
	fs.IntVar(&cfg.ItemsPerProducer, "items", envInt("ITEMS", cfg.ItemsPerProducer), "number of values written by each producer")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", envDuration("READ_TIMEOUT", cfg.ReadTimeout), "maximum wait of a consumer read")

	fs.IntVar(&cfg.Pool.InitialWorkers, "workers", envInt("WORKERS", cfg.Pool.InitialWorkers), "initial number of consumers")
	fs.IntVar(&cfg.Pool.MinWorkers, "min-workers", envInt("MIN_WORKERS", cfg.Pool.MinWorkers), "minimum number of consumers")
	fs.IntVar(&cfg.Pool.MaxWorkers, "max-workers", envInt("MAX_WORKERS", cfg.Pool.MaxWorkers), "maximum number of consumers")
	fs.BoolVar(&cfg.Pool.AutoScaleEnabled, "autoscale", envBool("AUTOSCALE", cfg.Pool.AutoScaleEnabled), "scale the consumers on the queue depth")
	fs.DurationVar(&cfg.Pool.AutoScaleInterval, "autoscale-interval", envDuration("AUTOSCALE_INTERVAL", cfg.Pool.AutoScaleInterval), "interval between two scaling evaluations")

	opts := &options{cfg: cfg}

	logLevel := fs.String("log-level", envString("LOG_LEVEL", slog.LevelInfo.String()), "minimum log level")
	fs.StringVar(&opts.otelEndpoint, "otel-endpoint", envString("OTEL_ENDPOINT", ""), "OTLP gRPC collector endpoint, empty to disable")
	fs.Float64Var(&opts.traceRatio, "trace-ratio", envFloat("TRACE_RATIO", 1), "sampling ratio of the traces")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	kind, err := rb.ParseBufferKind(*kindName)
	if err != nil {
		return nil, err
	}
	cfg.Ring.Kind = kind

	if *capacity > uint(^uint32(0)) {
		return nil, fmt.Errorf("capacity %d out of range", *capacity)
	}
	cfg.Ring.Capacity = uint32(*capacity)

	if err := opts.logLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	return opts, nil
}

func envString(name, fallback string) string {
	if val, ok := os.LookupEnv(envPrefix + name); ok {
		return val
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if val, err := strconv.Atoi(os.Getenv(envPrefix + name)); err == nil {
		return val
	}
	return fallback
}

func envUint(name string, fallback uint) uint {
	if val, err := strconv.ParseUint(os.Getenv(envPrefix+name), 10, 0); err == nil {
		return uint(val)
	}
	return fallback
}

func envFloat(name string, fallback float64) float64 {
	if val, err := strconv.ParseFloat(os.Getenv(envPrefix+name), 64); err == nil {
		return val
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(envPrefix + name)); err == nil {
		return val
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(envPrefix + name)); err == nil {
		return val
	}
	return fallback
}
