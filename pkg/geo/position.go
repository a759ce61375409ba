package geo

import (
	"fmt"
	"time"
)

// Position is a single resolved location fix. Latitude, longitude and
// accuracy are always present; the remaining fields are nil when the
// provider cannot supply them (stationary device, 2D-only fix, hardware
// without a compass).
type Position struct {
	Latitude  float64   `json:"latitude"`  // Decimal degrees, -90..90
	Longitude float64   `json:"longitude"` // Decimal degrees, -180..180
	Accuracy  float64   `json:"accuracy"`  // Accuracy radius in meters, >= 0
	Timestamp time.Time `json:"timestamp"` // When the fix was determined

	Altitude         *float64 `json:"altitude,omitempty"`          // Meters above sea level
	AltitudeAccuracy *float64 `json:"altitude_accuracy,omitempty"` // Meters
	Heading          *float64 `json:"heading,omitempty"`           // Degrees, 0..360
	Speed            *float64 `json:"speed,omitempty"`             // Meters per second, >= 0
}

// Validate checks the Position invariants.
func (p *Position) Validate() error {
	if p == nil {
		return fmt.Errorf("position is nil")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %f", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %f", p.Longitude)
	}
	if p.Accuracy < 0 {
		return fmt.Errorf("invalid accuracy: %f", p.Accuracy)
	}
	if p.Speed != nil && *p.Speed < 0 {
		return fmt.Errorf("invalid speed: %f", *p.Speed)
	}
	if p.Heading != nil && (*p.Heading < 0 || *p.Heading > 360) {
		return fmt.Errorf("invalid heading: %f", *p.Heading)
	}
	return nil
}

// Age returns how old the fix is.
func (p *Position) Age() time.Duration {
	return time.Since(p.Timestamp)
}

// DistanceTo returns the great-circle distance in meters to another position.
func (p *Position) DistanceTo(other *Position) float64 {
	return DistanceMeters(p.Latitude, p.Longitude, other.Latitude, other.Longitude)
}

// BearingTo returns the initial bearing in degrees toward another position.
func (p *Position) BearingTo(other *Position) float64 {
	return BearingDegrees(p.Latitude, p.Longitude, other.Latitude, other.Longitude)
}
