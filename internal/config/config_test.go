package config

import (
	"bytes"
	"os"
	"testing"

	"github.com/FerroO2000/mpmcring/internal"
	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Workers  int
	Capacity uint32
	Ratio    float64
	Spins    int
}

func (c *testConfig) Validate(ac *AnomalyCollector) {
	CheckNotNegative(ac, "Workers", &c.Workers, 1)
	CheckNotZero(ac, "Capacity", &c.Capacity, 8)
	CheckNotGreaterThan(ac, "Ratio", "1", &c.Ratio, 1.0)
	CheckNotLower(ac, "Spins", &c.Spins, 2)
	CheckTrue(ac, "Capacity", "must be even", c.Capacity%2 == 0, &c.Capacity, 8)
}

func Test_Validator(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	internal.SetConsoleOutput(buf, true)
	defer internal.SetConsoleOutput(os.Stderr, true)

	validator := NewValidator(internal.NewTelemetry("test", "validator"))

	cfg := &testConfig{
		Workers:  -2,
		Capacity: 0,
		Ratio:    3.5,
		Spins:    1,
	}

	assert.Equal(4, validator.Validate(cfg))

	assert.Equal(1, cfg.Workers)
	assert.Equal(uint32(8), cfg.Capacity)
	assert.Equal(1.0, cfg.Ratio)
	assert.Equal(2, cfg.Spins)

	assert.Contains(buf.String(), "config anomaly")
	assert.Contains(buf.String(), "field=Workers")

	// A valid configuration does not produce anomalies,
	// the previous ones must not be reported again
	assert.Zero(validator.Validate(cfg))
}

func Test_CheckTrue(t *testing.T) {
	ac := newAnomalyCollector()

	val := 3
	CheckTrue(ac, "Val", "must be even", val%2 == 0, &val, 4)
	assert.Equal(t, 4, val)

	CheckTrue(ac, "Val", "must be even", val%2 == 0, &val, 6)
	assert.Equal(t, 4, val)

	assert.Equal(t, 1, ac.Len())
	for an := range ac.drain() {
		assert.Equal(t, "Val must be even: 3 replaced by 4", an.String())
	}
	assert.Zero(t, ac.Len())
}

func Test_CheckNotLowerThan(t *testing.T) {
	ac := newAnomalyCollector()

	initial, minimum := 1, 4
	CheckNotLowerThan(ac, "InitialWorkers", "MinWorkers", &initial, minimum)
	assert.Equal(t, minimum, initial)

	CheckNotLower(ac, "Spins", &initial, 10)
	assert.Equal(t, 10, initial)
}
