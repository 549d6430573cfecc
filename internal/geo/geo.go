// Package geo provides great-circle distance helpers for offer discovery.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// kmPerDegreeLat is the length of one degree of latitude.
const kmPerDegreeLat = math.Pi * EarthRadiusKm / 180

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Box is an axis-aligned latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the haversine distance between a and b in kilometres.
func DistanceKm(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}

// BoundingBox returns a box that contains every point within radiusKm of center.
// The box over-approximates the circle; callers still filter by DistanceKm.
func BoundingBox(center Point, radiusKm float64) Box {
	dLat := radiusKm / kmPerDegreeLat

	box := Box{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLon: -180,
		MaxLon: 180,
	}

	// Near the poles every longitude is in range.
	cosLat := math.Cos(radians(center.Lat))
	if box.MinLat <= -90 || box.MaxLat >= 90 || cosLat < 1e-9 {
		return box
	}

	dLon := radiusKm / (kmPerDegreeLat * cosLat)
	if dLon >= 180 {
		return box
	}

	box.MinLon = center.Lon - dLon
	box.MaxLon = center.Lon + dLon
	if box.MinLon < -180 || box.MaxLon > 180 {
		box.MinLon, box.MaxLon = -180, 180
	}
	return box
}
