package geo

import (
	"math"
	"strconv"
	"strings"

	"JevanRaksha/pkg/errors"
)

// Coordinate is a WGS84 point, marshalled the way the remote store keeps
// location columns.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultCoordinate is the Kolkata fallback used when no position source is
// available.
var DefaultCoordinate = Coordinate{Lat: 22.5726, Lng: 88.3639}

const earthRadiusKm = 6371

// Distance returns the great-circle distance between two points in whole
// kilometres (haversine, rounded).
func Distance(a, b Coordinate) int {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return int(math.Round(earthRadiusKm * c))
}

// ParseCentroid parses a "lng,lat" pair as the alert API publishes it.
func ParseCentroid(s string) (Coordinate, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return Coordinate{}, errors.WithCode(errors.CodeGeo, "malformed centroid: "+s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, errors.WrapCode(errors.CodeGeo, err, "malformed centroid longitude")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, errors.WrapCode(errors.CodeGeo, err, "malformed centroid latitude")
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}
