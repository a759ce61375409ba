package geo

import "math"

// EarthRadiusM is the mean Earth radius used for spherical geodesy.
const EarthRadiusM = 6371000.0

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// DistanceMeters returns the great-circle distance between two coordinates
// using the haversine formula on a sphere of radius EarthRadiusM. The result
// is symmetric and zero for coincident points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// BearingDegrees returns the initial great-circle bearing from point 1
// toward point 2, normalized to [0, 360).
func BearingDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLon := toRadians(lon2 - lon1)

	y := math.Sin(deltaLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)

	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// CompassDirection maps a bearing in degrees to one of the 16 compass
// points by rounding bearing/22.5 to the nearest point on the rose.
func CompassDirection(bearing float64) string {
	idx := int(math.Round(math.Mod(bearing+360, 360)/22.5)) % 16
	return compassPoints[idx]
}
