package stats

import (
	"math"
	"sync"
	"time"
)

// EMA weights. Changing them changes every displayed ETA.
const (
	emaKeep   = 0.85
	emaSample = 0.15

	minElapsedSeconds = 0.001
)

// Estimator turns cumulative (done, total) byte samples into a smoothed
// throughput and a remaining-time estimate. Safe for concurrent use.
type Estimator struct {
	mu        sync.Mutex
	start     time.Time
	ema       float64 // bytes/sec
	elapsed   time.Duration
	remaining time.Duration
}

// NewEstimator returns an estimator measuring elapsed time from start.
func NewEstimator(start time.Time) *Estimator {
	return &Estimator{start: start}
}

// Observe records a sample taken now.
func (e *Estimator) Observe(done, total int64) (elapsed, remaining time.Duration) {
	return e.ObserveAt(time.Now(), done, total)
}

// ObserveAt records a sample taken at now and returns the elapsed time and
// the remaining-time estimate.
func (e *Estimator) ObserveAt(now time.Time, done, total int64) (elapsed, remaining time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed = now.Sub(e.start)
	secs := math.Max(elapsed.Seconds(), minElapsedSeconds)
	instantaneous := float64(done) / secs
	e.ema = e.ema*emaKeep + instantaneous*emaSample

	left := math.Max(float64(total-done), 0)
	remaining = 0
	if e.ema > 0 {
		remaining = time.Duration(left / e.ema * float64(time.Second))
	}

	e.elapsed = elapsed
	e.remaining = remaining
	return elapsed, remaining
}

// Throughput returns the smoothed bytes/sec.
func (e *Estimator) Throughput() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ema
}

// Remaining returns the estimate from the latest sample.
func (e *Estimator) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Elapsed returns the elapsed time at the latest sample.
func (e *Estimator) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}
