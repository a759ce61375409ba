package starlink

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	raw := `{"getLocation":{"lla":{"lat":59.48007,"lon":18.27985,"alt":9.5},"sigmaM":2.3,"source":"GPS"}}`

	pos, err := parseLocation(raw)
	require.NoError(t, err)
	assert.InDelta(t, 59.48007, pos.Latitude, 1e-9)
	assert.InDelta(t, 18.27985, pos.Longitude, 1e-9)
	assert.InDelta(t, 2.3, pos.Accuracy, 1e-9)
	require.NotNil(t, pos.Altitude)
	assert.InDelta(t, 9.5, *pos.Altitude, 1e-9)
}

func TestParseLocationSigmaDefault(t *testing.T) {
	raw := `{"getLocation":{"lla":{"lat":59.48,"lon":18.28,"alt":9.5}}}`

	pos, err := parseLocation(raw)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, pos.Accuracy, 1e-9)
}

func TestParseLocationRejectsNullIsland(t *testing.T) {
	raw := `{"getLocation":{"lla":{"lat":0,"lon":0,"alt":0},"sigmaM":1}}`
	_, err := parseLocation(raw)
	assert.Error(t, err)
}

func TestParseDiagnosticsLocation(t *testing.T) {
	raw := `{"dishGetDiagnostics":{"id":"dish-1","location":{"enabled":true,"latitude":59.48,"longitude":18.28,"altitudeMeters":12.0,"uncertaintyMeters":4.5,"uncertaintyMetersValid":true}}}`

	pos, err := parseDiagnosticsLocation(raw)
	require.NoError(t, err)
	assert.InDelta(t, 59.48, pos.Latitude, 1e-9)
	assert.InDelta(t, 4.5, pos.Accuracy, 1e-9)
}

func TestParseDiagnosticsLocationDisabled(t *testing.T) {
	raw := `{"dishGetDiagnostics":{"location":{"enabled":false,"latitude":59.48,"longitude":18.28}}}`
	_, err := parseDiagnosticsLocation(raw)
	assert.Error(t, err)
}

func TestParseDiagnosticsInvalidUncertaintyDefaults(t *testing.T) {
	raw := `{"dishGetDiagnostics":{"location":{"enabled":true,"latitude":59.48,"longitude":18.28,"uncertaintyMeters":0,"uncertaintyMetersValid":false}}}`

	pos, err := parseDiagnosticsLocation(raw)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, pos.Accuracy, 1e-9)
}

func TestGPSStatusUnmarshal(t *testing.T) {
	raw := `{"dishGetStatus":{"gpsStats":{"gpsValid":true,"gpsSats":14,"inhibitGps":false},"snr":9.2}}`

	var status statusResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &status))
	assert.True(t, status.DishGetStatus.GPSStats.GPSValid)
	assert.Equal(t, 14, status.DishGetStatus.GPSStats.GPSSats)
	assert.InDelta(t, 9.2, status.DishGetStatus.SNR, 1e-9)
}
