package compliance

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// RingArea computes the geodesic area in square meters of a polygon ring
// given as [lng, lat] points. The ring is closed automatically when the last
// point differs from the first. Fewer than three points, malformed points, or
// a geometry the area calculation cannot handle all yield ok=false instead of
// a panic.
func RingArea(points [][]float64) (sqm float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			sqm, ok = 0, false
		}
	}()

	if len(points) < 3 {
		return 0, false
	}

	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		if len(p) < 2 {
			return 0, false
		}
		ring = append(ring, orb.Point{p[0], p[1]})
	}

	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	area := geo.Area(orb.Polygon{ring})
	return math.Abs(area), true
}
