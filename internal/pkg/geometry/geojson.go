package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Geometry converts b to an orb geometry: a Point for one point, a LineString
// for two and a closed Polygon for three or more. It returns nil for an empty
// boundary.
func Geometry(b Boundary) orb.Geometry {
	switch {
	case len(b) == 0:
		return nil
	case len(b) == 1:
		return orb.Point{b[0].Lng, b[0].Lat}
	case len(b) == 2:
		return orb.LineString{{b[0].Lng, b[0].Lat}, {b[1].Lng, b[1].Lat}}
	default:
		return orb.Polygon{ring(b)}
	}
}

// Feature wraps b in a GeoJSON feature with the given properties.
func Feature(b Boundary, props map[string]interface{}) *geojson.Feature {
	g := Geometry(b)
	if g == nil {
		return nil
	}
	f := geojson.NewFeature(g)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}
