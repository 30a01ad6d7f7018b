package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// AreaScale converts the planar shoelace result (square degrees) to the
// square-meter figure stored with a registration.
//
// TODO: the factor has no derivation and is wrong away from small areas near
// the equator; replace it once stored areas can be migrated to GeodesicArea.
const AreaScale = 10000 * 10000

// Centroid returns the arithmetic mean of the boundary points, or (0,0) for
// an empty boundary. It is not area-weighted.
func Centroid(b Boundary) Point {
	switch len(b) {
	case 0:
		return Point{}
	case 1:
		return b[0]
	}

	var lat, lng float64
	for _, p := range b {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(b))
	return Point{Lat: lat / n, Lng: lng / n}
}

// ShoelaceArea returns the planar area of the implicitly closed polygon in
// square degrees. Boundaries with fewer than three points have no area.
func ShoelaceArea(b Boundary) float64 {
	n := len(b)
	if n < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += b[i].Lng * b[j].Lat
		sum -= b[j].Lng * b[i].Lat
	}
	return math.Abs(sum) / 2
}

// EstimateArea returns ShoelaceArea scaled by AreaScale. This is a flat-earth
// approximation; its error is unbounded for large or high-latitude polygons.
func EstimateArea(b Boundary) float64 {
	return ShoelaceArea(b) * AreaScale
}

// GeodesicArea returns the area of the polygon on the WGS84 sphere in square
// meters. It is informational and never replaces EstimateArea.
func GeodesicArea(b Boundary) float64 {
	if len(b) < 3 {
		return 0
	}
	return math.Abs(geo.Area(orb.Polygon{ring(b)}))
}

// ring converts b to a closed orb ring (X = lng, Y = lat).
func ring(b Boundary) orb.Ring {
	r := make(orb.Ring, 0, len(b)+1)
	for _, p := range b {
		r = append(r, orb.Point{p.Lng, p.Lat})
	}
	if len(r) > 0 && !r[0].Equal(r[len(r)-1]) {
		r = append(r, r[0])
	}
	return r
}
