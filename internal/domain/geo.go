package domain

import "math"

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in
// kilometers.
func Haversine(a, b LatLon) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox is the lat/lon rectangle that fully contains a radius around a
// center point. Candidate selection only; callers still apply the exact
// great-circle filter. MinLon > MaxLon means the box wraps across the
// antimeridian.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Wraps reports whether the box crosses the antimeridian.
func (b BoundingBox) Wraps() bool {
	return b.MinLon > b.MaxLon
}

// BoundsForRadius computes the bounding box for radiusKm around center.
// Longitude degrees shrink with latitude; near the poles the box degenerates
// to the full longitude range. A box reaching past ±180 wraps rather than
// clamps, so a radius near the antimeridian covers both sides of the seam.
func BoundsForRadius(center LatLon, radiusKm float64) BoundingBox {
	latDelta := radiusKm / 111.0

	box := BoundingBox{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MaxLat: math.Min(center.Lat+latDelta, 90),
	}

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat*111.0 <= radiusKm/180.0 {
		box.MinLon, box.MaxLon = -180, 180
		return box
	}

	lonDelta := radiusKm / (111.0 * cosLat)
	if 2*lonDelta >= 360 {
		box.MinLon, box.MaxLon = -180, 180
		return box
	}
	box.MinLon = wrapLon(center.Lon - lonDelta)
	box.MaxLon = wrapLon(center.Lon + lonDelta)
	return box
}

// wrapLon maps a longitude into [-180, 180).
func wrapLon(lon float64) float64 {
	for lon < -180 {
		lon += 360
	}
	for lon >= 180 {
		lon -= 360
	}
	return lon
}

// ValidCoordinates reports whether p is a usable WGS-84 coordinate pair.
func ValidCoordinates(p LatLon) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
