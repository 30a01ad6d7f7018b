// Package geometry converts drawn land boundaries to and from their stored
// location strings and derives display and area values from them.
package geometry

// Point is a geographic coordinate. Ranges are not validated.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Boundary is an ordered list of points. One point is a marker; three or
// more describe a polygon that is implicitly closed.
type Boundary []Point

// IsPolygon reports whether the boundary encloses an area.
func (b Boundary) IsPolygon() bool {
	return len(b) >= 3
}

// Reversed returns a copy of b with the point order reversed.
func (b Boundary) Reversed() Boundary {
	out := make(Boundary, len(b))
	for i, p := range b {
		out[len(b)-1-i] = p
	}
	return out
}
