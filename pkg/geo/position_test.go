package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestPosition_Validate(t *testing.T) {
	valid := &Position{
		Latitude:  25.7617,
		Longitude: -80.1918,
		Accuracy:  4.0,
		Timestamp: time.Now(),
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name string
		pos  *Position
	}{
		{"nil", nil},
		{"lat_too_high", &Position{Latitude: 90.1, Longitude: 0, Accuracy: 1}},
		{"lat_too_low", &Position{Latitude: -90.1, Longitude: 0, Accuracy: 1}},
		{"lon_too_high", &Position{Latitude: 0, Longitude: 180.1, Accuracy: 1}},
		{"lon_too_low", &Position{Latitude: 0, Longitude: -180.1, Accuracy: 1}},
		{"negative_accuracy", &Position{Latitude: 0, Longitude: 0, Accuracy: -1}},
		{"negative_speed", &Position{Latitude: 0, Longitude: 0, Accuracy: 1, Speed: floatPtr(-2)}},
		{"heading_out_of_range", &Position{Latitude: 0, Longitude: 0, Accuracy: 1, Heading: floatPtr(361)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.pos.Validate())
		})
	}
}

func TestPosition_OptionalFieldsAbsent(t *testing.T) {
	// A bare 2D fix with no motion data is valid; optional fields stay nil.
	pos := &Position{Latitude: 59.3293, Longitude: 18.0686, Accuracy: 12, Timestamp: time.Now()}
	require.NoError(t, pos.Validate())
	assert.Nil(t, pos.Altitude)
	assert.Nil(t, pos.Heading)
	assert.Nil(t, pos.Speed)
}

func TestPosition_DistanceAndBearing(t *testing.T) {
	a := &Position{Latitude: 0, Longitude: 0, Accuracy: 1}
	b := &Position{Latitude: 0, Longitude: 1, Accuracy: 1}

	assert.InDelta(t, 111194.9, a.DistanceTo(b), 1.0)
	assert.InDelta(t, 90.0, a.BearingTo(b), 0.01)
}
