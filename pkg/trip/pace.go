package trip

import (
	"sync"
	"time"

	"github.com/sajari/regression"
)

// PaceEstimator derives a smoothed pace (m/s) from the trip's cumulative
// distance curve. A least-squares fit over a sliding window of
// (elapsed seconds, cumulative meters) observations is far less jumpy
// than instantaneous GPS speed, which bounces with every accuracy
// wobble at low hull speeds.
type PaceEstimator struct {
	mu      sync.Mutex
	window  int
	samples []paceSample
	origin  time.Time
}

type paceSample struct {
	elapsed float64 // seconds since first sample
	total   float64 // cumulative meters at that instant
}

// NewPaceEstimator creates an estimator over a sliding window of the
// given size. Windows below 2 are clamped; a slope needs two points.
func NewPaceEstimator(window int) *PaceEstimator {
	if window < 2 {
		window = 2
	}
	return &PaceEstimator{window: window}
}

// Observe records the cumulative trip distance at time now.
func (pe *PaceEstimator) Observe(totalMeters float64, now time.Time) {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	if pe.origin.IsZero() {
		pe.origin = now
	}

	pe.samples = append(pe.samples, paceSample{
		elapsed: now.Sub(pe.origin).Seconds(),
		total:   totalMeters,
	})
	if len(pe.samples) > pe.window {
		pe.samples = pe.samples[len(pe.samples)-pe.window:]
	}
}

// Pace returns the fitted pace in m/s and whether enough samples exist
// to fit one. The slope is clamped at zero; cumulative distance cannot
// shrink, so a negative fit only ever means numeric noise.
func (pe *PaceEstimator) Pace() (float64, bool) {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	if len(pe.samples) < 2 {
		return 0, false
	}

	r := new(regression.Regression)
	r.SetObserved("cumulative distance m")
	r.SetVar(0, "elapsed s")
	for _, s := range pe.samples {
		r.Train(regression.DataPoint(s.total, []float64{s.elapsed}))
	}
	if err := r.Run(); err != nil {
		return 0, false
	}

	slope := r.Coeff(1)
	if slope < 0 {
		return 0, true
	}
	return slope, true
}

// Reset discards all samples; pairs with Accumulator.Reset.
func (pe *PaceEstimator) Reset() {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.samples = nil
	pe.origin = time.Time{}
}
