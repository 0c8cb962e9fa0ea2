package rb

import (
	"runtime"

	"github.com/FerroO2000/mpmcring/internal/config"
)

// Default configuration values for the ring buffer.
const (
	DefaultCapacity = 512
	DefaultKind     = BufferKindMPMC
)

// DefaultMaxSpins returns the default number of non-blocking attempts
// made by [RingBuffer.Write] and [RingBuffer.Read] before parking.
func DefaultMaxSpins() int {
	return runtime.NumCPU() * 32
}

// Config is the configuration for the [RingBuffer].
type Config struct {
	// Capacity is the number of slots (N) of the buffer.
	// One slot is always kept free, so the buffer holds at most N-1 items.
	// It cannot be zero.
	Capacity uint32

	// Kind is the producer/consumer discipline of the buffer.
	Kind BufferKind

	// MaxSpins is the number of non-blocking attempts made by the blocking
	// operations before waiting for a signal.
	MaxSpins int
}

// NewConfig returns the default configuration for the ring buffer.
func NewConfig() *Config {
	return &Config{
		Capacity: DefaultCapacity,
		Kind:     DefaultKind,
		MaxSpins: DefaultMaxSpins(),
	}
}

// Validate checks the configuration.
// A zero capacity is not replaced, it is rejected by [NewRingBufferFromConfig].
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckTrue(ac, "Kind", "unknown buffer kind", c.Kind.isValid(), &c.Kind, DefaultKind)
	config.CheckNotNegative(ac, "MaxSpins", &c.MaxSpins, DefaultMaxSpins())
}
