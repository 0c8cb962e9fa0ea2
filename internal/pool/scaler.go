package pool

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/mpmcring/internal"
)

// maxScaleDownBackoff caps the number of evaluations between two scale downs.
const maxScaleDownBackoff = 15

type scalerConfig struct {
	enabled             bool
	minWorkers          int
	maxWorkers          int
	queueDepthThreshold float64
	scaleDownFactor     float64
	scaleDownBackoff    float64
	interval            time.Duration
}

func newScalerConfig(poolCfg *Config) *scalerConfig {
	return &scalerConfig{
		enabled:             poolCfg.AutoScaleEnabled,
		maxWorkers:          poolCfg.MaxWorkers,
		minWorkers:          poolCfg.MinWorkers,
		queueDepthThreshold: float64(poolCfg.QueueDepthPerWorker),
		scaleDownFactor:     poolCfg.ScaleDownFactor,
		scaleDownBackoff:    poolCfg.ScaleDownBackoff,
		interval:            poolCfg.AutoScaleInterval,
	}
}

// Resizable is the target of the auto-scaler.
type Resizable interface {
	// Count returns the number of running workers.
	Count() int
	// Pending returns the number of items waiting to be consumed.
	Pending() int
	// Resize sets the number of running workers.
	Resize(target int) int
}

// Scaler is an utility struct for a worker pool
// that implements worker auto-scaling.
type Scaler struct {
	tel *internal.Telemetry

	cfg *scalerConfig

	target Resizable

	consecutiveScaleDown int
	scaleDownAt          float64

	scaleUps   atomic.Int64
	scaleDowns atomic.Int64
}

// NewScaler returns a new auto-scaler instance.
func NewScaler(tel *internal.Telemetry, poolCfg *Config, target Resizable) *Scaler {
	return &Scaler{
		tel: tel,

		cfg: newScalerConfig(poolCfg),

		target: target,

		consecutiveScaleDown: 0,
		scaleDownAt:          1,
	}
}

func (s *Scaler) initMetrics() {
	s.tel.NewCounter("worker_pool_scale_ups", func() int64 {
		return s.scaleUps.Load()
	})

	s.tel.NewCounter("worker_pool_scale_downs", func() int64 {
		return s.scaleDowns.Load()
	})
}

// Run starts the auto-scaler. It returns when the context is done.
func (s *Scaler) Run(ctx context.Context) {
	if !s.cfg.enabled {
		return
	}

	s.initMetrics()

	ticker := time.NewTicker(s.cfg.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.evaluateAndScale()
		}
	}
}

func (s *Scaler) evaluateAndScale() {
	currWorkers := s.target.Count()
	pendingTasks := s.target.Pending()

	targetWorkers := s.evaluate(currWorkers, pendingTasks)

	s.tel.LogInfo("auto-scaling metrics",
		"current_workers", currWorkers,
		"pending_tasks", pendingTasks,
		"target_workers", targetWorkers,
	)

	switch {
	case targetWorkers > currWorkers:
		s.tel.LogInfo("scaling up", "from", currWorkers, "to", targetWorkers)
		s.scaleUps.Add(1)

	case targetWorkers < currWorkers:
		s.tel.LogInfo("scaling down", "from", currWorkers, "to", targetWorkers)
		s.scaleDowns.Add(1)

	default:
		return
	}

	s.target.Resize(targetWorkers)
}

// evaluate returns the number of workers needed to consume
// the pending tasks.
func (s *Scaler) evaluate(currWorkers, pendingTasks int) int {
	if currWorkers <= 0 {
		return s.cfg.minWorkers
	}

	queueDepthPerWorker := float64(pendingTasks) / float64(currWorkers)

	// Scale up if queue depth per worker is higher than target
	if queueDepthPerWorker > s.cfg.queueDepthThreshold {
		workersToAdd := max(int(math.Ceil(float64(pendingTasks)/s.cfg.queueDepthThreshold)), 1)

		s.resetScaleDownTiming()

		return min(currWorkers+workersToAdd, s.cfg.maxWorkers)
	}

	// Scale down if there are fewer pending tasks than workers
	if currWorkers > s.cfg.minWorkers && pendingTasks < currWorkers {
		if !s.checkScaleDownTiming() {
			return currWorkers
		}

		workersToRemove := max(int(math.Ceil(float64(currWorkers)*s.cfg.scaleDownFactor)), 1)

		return max(currWorkers-workersToRemove, s.cfg.minWorkers)
	}

	return currWorkers
}

func (s *Scaler) resetScaleDownTiming() {
	s.consecutiveScaleDown = 0
	s.scaleDownAt = 1
}

// checkScaleDownTiming states if it is the right time to scale down
// and updates the necessary parameters.
func (s *Scaler) checkScaleDownTiming() bool {
	s.consecutiveScaleDown++

	if float64(s.consecutiveScaleDown) < s.scaleDownAt {
		return false
	}

	// Consecutive scale downs get exponentially rarer
	s.consecutiveScaleDown = 0
	s.scaleDownAt = min(s.scaleDownAt*s.cfg.scaleDownBackoff, maxScaleDownBackoff)

	return true
}
