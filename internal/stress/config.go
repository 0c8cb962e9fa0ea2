package stress

import (
	"time"

	"github.com/FerroO2000/mpmcring/internal/config"
	"github.com/FerroO2000/mpmcring/internal/pool"
	"github.com/FerroO2000/mpmcring/internal/rb"
)

// Default configuration values for a stress run.
const (
	DefaultProducers        = 4
	DefaultItemsPerProducer = 100_000
	DefaultReadTimeout      = 100 * time.Millisecond
)

// Config is the configuration of a stress run.
type Config struct {
	// Ring is the configuration of the ring buffer under test.
	Ring *rb.Config

	// Producers is the number of goroutines writing into the ring buffer.
	// Single producer kinds only allow one.
	//
	// Default: 4
	Producers int

	// ItemsPerProducer is the number of distinct values written by each producer.
	//
	// Default: 100_000
	ItemsPerProducer int

	// ReadTimeout is the maximum time a worker waits for an item
	// before checking if it has been stopped. Zero disables it.
	//
	// Default: 100ms
	ReadTimeout time.Duration

	// Pool is the configuration of the workers consuming the ring buffer.
	// Single consumer kinds only allow one worker.
	Pool *pool.Config
}

// DefaultConfig returns the default configuration of a stress run.
func DefaultConfig() *Config {
	return &Config{
		Ring:             rb.NewConfig(),
		Producers:        DefaultProducers,
		ItemsPerProducer: DefaultItemsPerProducer,
		ReadTimeout:      DefaultReadTimeout,
		Pool:             pool.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	if c.Ring == nil {
		c.Ring = rb.NewConfig()
	}
	if c.Pool == nil {
		c.Pool = pool.DefaultConfig()
	}

	c.Ring.Validate(ac)
	config.CheckNotZero(ac, "Capacity", &c.Ring.Capacity, rb.DefaultCapacity)
	config.CheckNotLower(ac, "Capacity", &c.Ring.Capacity, pool.MinQueueSize)

	config.CheckNotLower(ac, "Producers", &c.Producers, 1)
	config.CheckTrue(ac, "Producers", "must be 1 for a single producer buffer",
		c.Ring.Kind.MultiProducer() || c.Producers == 1, &c.Producers, 1)

	config.CheckNotLower(ac, "ItemsPerProducer", &c.ItemsPerProducer, 1)
	config.CheckNotNegative(ac, "ReadTimeout", &c.ReadTimeout, DefaultReadTimeout)

	if !c.Ring.Kind.MultiConsumer() {
		reason := "must be 1 for a single consumer buffer"
		config.CheckTrue(ac, "MaxWorkers", reason, c.Pool.MaxWorkers == 1, &c.Pool.MaxWorkers, 1)
		config.CheckTrue(ac, "MinWorkers", reason, c.Pool.MinWorkers == 1, &c.Pool.MinWorkers, 1)
		config.CheckTrue(ac, "InitialWorkers", reason, c.Pool.InitialWorkers == 1, &c.Pool.InitialWorkers, 1)
	}

	c.Pool.Validate(ac)
}
