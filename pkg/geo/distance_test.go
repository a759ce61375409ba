package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_CoincidentPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{25.7617, -80.1918},
		{59.3293, 18.0686},
		{-33.8688, 151.2093},
	}

	for _, p := range points {
		assert.Equal(t, 0.0, DistanceMeters(p[0], p[1], p[0], p[1]))
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"equator", 0, 0, 0, 1},
		{"miami_to_nassau", 25.7617, -80.1918, 25.0443, -77.3504},
		{"across_dateline", 10, 179.5, 10, -179.5},
		{"pole_to_pole", 89, 0, -89, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			forward := DistanceMeters(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			reverse := DistanceMeters(tc.lat2, tc.lon2, tc.lat1, tc.lon1)
			assert.InDelta(t, forward, reverse, 1e-9)
			assert.GreaterOrEqual(t, forward, 0.0)
		})
	}
}

func TestDistanceMeters_OneDegreeAtEquator(t *testing.T) {
	// One degree of longitude at the equator on a 6371km sphere.
	d := DistanceMeters(0, 0, 0, 1)
	assert.InDelta(t, 111194.9, d, 1.0)
}

func TestBearingDegrees_Range(t *testing.T) {
	cases := [][4]float64{
		{0, 0, 10, 10},
		{0, 0, -10, 10},
		{0, 0, -10, -10},
		{0, 0, 10, -10},
		{25.7617, -80.1918, 25.0443, -77.3504},
		{51.5, -0.1, 51.5, -0.1000001},
	}

	for _, c := range cases {
		b := BearingDegrees(c[0], c[1], c[2], c[3])
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 360.0)
	}
}

func TestBearingDegrees_CardinalDirections(t *testing.T) {
	assert.InDelta(t, 0.0, BearingDegrees(0, 0, 1, 0), 0.01)    // due north
	assert.InDelta(t, 90.0, BearingDegrees(0, 0, 0, 1), 0.01)   // due east
	assert.InDelta(t, 180.0, BearingDegrees(1, 0, 0, 0), 0.01)  // due south
	assert.InDelta(t, 270.0, BearingDegrees(0, 1, 0, 0), 0.01)  // due west
}

func TestBearingDegrees_NotSymmetric(t *testing.T) {
	forward := BearingDegrees(25.7617, -80.1918, 26.7153, -80.0534)
	reverse := BearingDegrees(26.7153, -80.0534, 25.7617, -80.1918)
	assert.NotEqual(t, forward, reverse)
	// Reverse bearing differs by roughly 180 degrees on short legs.
	diff := math.Abs(math.Mod(reverse-forward+360, 360))
	assert.InDelta(t, 180.0, diff, 1.0)
}

func TestCompassDirection(t *testing.T) {
	cases := []struct {
		bearing float64
		want    string
	}{
		{0, "N"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{45, "NE"},
		{22.5, "NNE"},
		{337.5, "NNW"},
		{348.74, "NNW"},
		{354, "N"},
		{360, "N"},
		{11.24, "N"},
		{11.3, "NNE"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CompassDirection(tc.bearing), "bearing %v", tc.bearing)
	}
}
