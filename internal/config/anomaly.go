package config

import (
	"fmt"
	"iter"
)

// anomaly is a field replaced by its fallback value during a validation.
type anomaly struct {
	field    string
	reason   string
	actual   any
	fallback any
}

func (an anomaly) String() string {
	return fmt.Sprintf("%s %s: %v replaced by %v", an.field, an.reason, an.actual, an.fallback)
}

// AnomalyCollector records the fields replaced while a configuration is validated.
type AnomalyCollector struct {
	anomalies []anomaly
}

func newAnomalyCollector() *AnomalyCollector {
	return &AnomalyCollector{}
}

func (ac *AnomalyCollector) add(field, reason string, actual, fallback any) {
	ac.anomalies = append(ac.anomalies, anomaly{field, reason, actual, fallback})
}

// Len returns the number of recorded anomalies.
func (ac *AnomalyCollector) Len() int {
	return len(ac.anomalies)
}

// drain yields the recorded anomalies in order and forgets them.
func (ac *AnomalyCollector) drain() iter.Seq[anomaly] {
	return func(yield func(anomaly) bool) {
		defer func() {
			clear(ac.anomalies)
			ac.anomalies = ac.anomalies[:0]
		}()

		for _, an := range ac.anomalies {
			if !yield(an) {
				return
			}
		}
	}
}
