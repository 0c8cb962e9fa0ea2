// Package config contains the helpers used to validate the configurations
// of the ring buffer, the worker pool and the stress harness.
// Invalid fields are never fatal: they are replaced by a fallback
// and reported as warnings.
package config

import (
	"github.com/FerroO2000/mpmcring/internal"
)

// Config is implemented by every configuration that can be validated.
type Config interface {
	// Validate checks the fields, replacing the invalid ones
	// and recording an anomaly for each of them.
	Validate(ac *AnomalyCollector)
}

// Validator logs the anomalies found while validating a configuration.
type Validator struct {
	tel *internal.Telemetry

	anomalyCollector *AnomalyCollector
}

// NewValidator returns a new validator.
func NewValidator(tel *internal.Telemetry) *Validator {
	return &Validator{
		tel: tel,

		anomalyCollector: newAnomalyCollector(),
	}
}

// Validate validates the given configuration, logs every anomaly
// as a warning and returns the number of fields that have been
// replaced by their fallback value.
func (v *Validator) Validate(cfg Config) int {
	cfg.Validate(v.anomalyCollector)

	count := v.anomalyCollector.Len()
	for an := range v.anomalyCollector.drain() {
		v.tel.LogWarn("config anomaly",
			"field", an.field, "reason", an.reason,
			"actual", an.actual, "fallback", an.fallback)
	}

	return count
}
