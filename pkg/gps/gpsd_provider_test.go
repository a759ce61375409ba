package gps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTPVFullFix(t *testing.T) {
	line := []byte(`{"class":"TPV","mode":3,"time":"2026-08-29T10:15:30.000Z","lat":57.70887,"lon":11.97456,"altHAE":42.5,"eph":3.2,"epv":5.1,"track":182.4,"speed":4.6}`)

	pos, ok := parseTPV(line)
	require.True(t, ok)
	assert.InDelta(t, 57.70887, pos.Latitude, 1e-9)
	assert.InDelta(t, 11.97456, pos.Longitude, 1e-9)
	assert.InDelta(t, 3.2, pos.Accuracy, 1e-9)
	require.NotNil(t, pos.Altitude)
	assert.InDelta(t, 42.5, *pos.Altitude, 1e-9)
	require.NotNil(t, pos.AltitudeAccuracy)
	assert.InDelta(t, 5.1, *pos.AltitudeAccuracy, 1e-9)
	require.NotNil(t, pos.Speed)
	assert.InDelta(t, 4.6, *pos.Speed, 1e-9)
	require.NotNil(t, pos.Heading)
	assert.InDelta(t, 182.4, *pos.Heading, 1e-9)
	assert.Equal(t, 2026, pos.Timestamp.Year())
}

func TestParseTPV2DFixHasNoAltitude(t *testing.T) {
	line := []byte(`{"class":"TPV","mode":2,"lat":59.33,"lon":18.06,"eph":7.5}`)

	pos, ok := parseTPV(line)
	require.True(t, ok)
	assert.Nil(t, pos.Altitude)
	assert.Nil(t, pos.AltitudeAccuracy)
	assert.InDelta(t, 7.5, pos.Accuracy, 1e-9)
}

func TestParseTPVNoFixRejected(t *testing.T) {
	_, ok := parseTPV([]byte(`{"class":"TPV","mode":1}`))
	assert.False(t, ok)

	_, ok = parseTPV([]byte(`{"class":"SKY","satellites":[]}`))
	assert.False(t, ok)

	_, ok = parseTPV([]byte(`not json`))
	assert.False(t, ok)
}

func TestParseTPVStationaryOmitsHeading(t *testing.T) {
	line := []byte(`{"class":"TPV","mode":3,"lat":59.33,"lon":18.06,"eph":4.0,"speed":0}`)

	pos, ok := parseTPV(line)
	require.True(t, ok)
	assert.Nil(t, pos.Speed)
	assert.Nil(t, pos.Heading)
}

func TestHorizontalErrorFallbacks(t *testing.T) {
	assert.InDelta(t, 2.5, horizontalError(&tpvReport{EPH: 2.5, EPX: 9, EPY: 9}), 1e-9)
	assert.InDelta(t, 6.0, horizontalError(&tpvReport{EPX: 4, EPY: 6}), 1e-9)
	assert.InDelta(t, 4.0, horizontalError(&tpvReport{EPX: 4}), 1e-9)
	assert.InDelta(t, 15.0, horizontalError(&tpvReport{}), 1e-9)
}
