package spatial

import "math"

// Web-Mercator (EPSG:3857) constants. The projection uses the WGS84
// semi-major axis as a sphere radius, unlike the haversine helpers which use
// the mean earth radius.
const (
	WebMercatorRadius = 6378137.0
	// MaxMercatorLat is the latitude beyond which the projection diverges;
	// inputs are clamped to it.
	MaxMercatorLat = 85.05112878

	worldSize = 2 * math.Pi * WebMercatorRadius
	halfWorld = worldSize / 2
)

// MercatorFromLonLat projects a lon/lat pair (degrees) to Web-Mercator
// meters. Latitude is clamped to the projectable range.
func MercatorFromLonLat(lon, lat float64) (x, y float64) {
	if lat > MaxMercatorLat {
		lat = MaxMercatorLat
	}
	if lat < -MaxMercatorLat {
		lat = -MaxMercatorLat
	}
	x = WebMercatorRadius * lon * math.Pi / 180
	y = WebMercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// LonLatFromMercator is the inverse projection.
func LonLatFromMercator(x, y float64) (lon, lat float64) {
	lon = x / WebMercatorRadius * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/WebMercatorRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}
