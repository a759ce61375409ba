package trip

import (
	"sync"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/geo"
)

// Accumulator totals distance traveled over a sequence of position
// fixes. Every accepted point becomes the reference for the next delta,
// so the total is monotone non-decreasing until Reset.
//
// Positions arrive from both the platform watch and the fallback
// ticker, so all state is mutex-guarded.
type Accumulator struct {
	mu       sync.Mutex
	total    float64
	points   int
	maxSpeed float64
	last     *geo.Position
	started  time.Time
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AddPoint folds a fix into the trip and returns the meters it added.
// The first point after construction or Reset contributes zero but
// becomes the reference for the next delta.
func (a *Accumulator) AddPoint(pos *geo.Position) float64 {
	if pos == nil {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.last == nil {
		a.started = pos.Timestamp
		if a.started.IsZero() {
			a.started = time.Now()
		}
	}

	var delta float64
	if a.last != nil {
		delta = geo.DistanceMeters(a.last.Latitude, a.last.Longitude, pos.Latitude, pos.Longitude)
		a.total += delta
	}

	a.points++
	a.last = pos
	if pos.Speed != nil && *pos.Speed > a.maxSpeed {
		a.maxSpeed = *pos.Speed
	}

	return delta
}

// Reset zeroes the total and clears the reference point; the next
// AddPoint starts a fresh trip.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = 0
	a.points = 0
	a.maxSpeed = 0
	a.last = nil
	a.started = time.Time{}
}

// Total returns the accumulated meters.
func (a *Accumulator) Total() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Stats is a point-in-time summary of the current trip.
type Stats struct {
	DistanceMeters float64       `json:"distance_meters"`
	Points         int           `json:"points"`
	MaxSpeedMS     float64       `json:"max_speed_ms"`
	Elapsed        time.Duration `json:"elapsed"`
	Started        time.Time     `json:"started,omitempty"`
}

// Snapshot returns the current trip summary.
func (a *Accumulator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{
		DistanceMeters: a.total,
		Points:         a.points,
		MaxSpeedMS:     a.maxSpeed,
		Started:        a.started,
	}
	if !a.started.IsZero() {
		s.Elapsed = time.Since(a.started)
	}
	return s
}
