// Package pool contains the inner components for implementing a worker pool
// consuming from a ring buffer.
package pool

import (
	"runtime"
	"time"

	"github.com/FerroO2000/mpmcring/internal/config"
)

// Default configuration values for the pool.
const (
	DefaultAutoScaleEnabled    = true
	DefaultMinWorkers          = 1
	DefaultOutputQueueSize     = 512
	DefaultQueueDepthPerWorker = 64
	DefaultScaleDownFactor     = 0.1
	DefaultScaleDownBackoff    = 1.5
	DefaultAutoScaleInterval   = 3 * time.Second
)

// MinQueueSize is the smallest ring buffer usable by the pool,
// a single slot is always the reserved one and never holds an item.
const MinQueueSize = 2

// DefaultMaxWorkers returns the default maximum number of workers
// (number of CPUs).
func DefaultMaxWorkers() int {
	return runtime.NumCPU()
}

// DefaultInitialWorkers returns the default initial number of workers
// (half of CPUs, minimum 1).
func DefaultInitialWorkers() int {
	return max(1, DefaultMaxWorkers()/2)
}

// Config is the configuration for the worker pool.
type Config struct {
	// AutoScaleEnabled states whether the worker pool should scale automatically.
	//
	// Default: true
	AutoScaleEnabled bool

	// InitialWorkers is the initial number of workers.
	//
	// Default: half of the CPUs
	InitialWorkers int

	// MinWorkers is the minimum number of workers.
	//
	// Default: 1
	MinWorkers int
	// MaxWorkers is the maximum number of workers.
	//
	// Default: number of CPUs
	MaxWorkers int

	// OutputQueueSize is the number of slots of the ring buffer used to fan in
	// the results of the workers. It cannot be lower than 2.
	//
	// Default: 512
	OutputQueueSize int

	// QueueDepthPerWorker is the target number of pending items per worker.
	//
	// Default: 64
	QueueDepthPerWorker int

	// ScaleDownFactor is the factor by which to scale down the number of workers.
	//
	// Default: 0.1
	ScaleDownFactor float64
	// ScaleDownBackoff is the factor by which to increase the time to scale down.
	//
	// Default: 1.5
	ScaleDownBackoff float64

	// AutoScaleInterval is the interval at which the auto scaler is triggered.
	//
	// Default: 3 seconds
	AutoScaleInterval time.Duration
}

// DefaultConfig returns the default configuration for the worker pool.
func DefaultConfig() *Config {
	return &Config{
		AutoScaleEnabled:    DefaultAutoScaleEnabled,
		InitialWorkers:      DefaultInitialWorkers(),
		MinWorkers:          DefaultMinWorkers,
		MaxWorkers:          DefaultMaxWorkers(),
		OutputQueueSize:     DefaultOutputQueueSize,
		QueueDepthPerWorker: DefaultQueueDepthPerWorker,
		ScaleDownFactor:     DefaultScaleDownFactor,
		ScaleDownBackoff:    DefaultScaleDownBackoff,
		AutoScaleInterval:   DefaultAutoScaleInterval,
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckNotLower(ac, "MaxWorkers", &c.MaxWorkers, 1)

	config.CheckNotLower(ac, "MinWorkers", &c.MinWorkers, DefaultMinWorkers)
	config.CheckNotGreaterThan(ac, "MinWorkers", "MaxWorkers", &c.MinWorkers, c.MaxWorkers)

	config.CheckNotLowerThan(ac, "InitialWorkers", "MinWorkers", &c.InitialWorkers, c.MinWorkers)
	config.CheckNotGreaterThan(ac, "InitialWorkers", "MaxWorkers", &c.InitialWorkers, c.MaxWorkers)

	config.CheckNotNegative(ac, "OutputQueueSize", &c.OutputQueueSize, DefaultOutputQueueSize)
	config.CheckNotLower(ac, "OutputQueueSize", &c.OutputQueueSize, MinQueueSize)

	config.CheckNotNegative(ac, "QueueDepthPerWorker", &c.QueueDepthPerWorker, DefaultQueueDepthPerWorker)
	config.CheckNotZero(ac, "QueueDepthPerWorker", &c.QueueDepthPerWorker, DefaultQueueDepthPerWorker)

	config.CheckNotNegative(ac, "ScaleDownFactor", &c.ScaleDownFactor, DefaultScaleDownFactor)
	config.CheckNotGreaterThan(ac, "ScaleDownFactor", "1", &c.ScaleDownFactor, 1.0)
	config.CheckNotLower(ac, "ScaleDownBackoff", &c.ScaleDownBackoff, 1.0)

	config.CheckNotNegative(ac, "AutoScaleInterval", &c.AutoScaleInterval, DefaultAutoScaleInterval)
	config.CheckNotZero(ac, "AutoScaleInterval", &c.AutoScaleInterval, DefaultAutoScaleInterval)
}
