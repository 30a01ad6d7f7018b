package geometry

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestGeometry(t *testing.T) {
	if Geometry(nil) != nil {
		t.Error("expected nil geometry for empty boundary")
	}

	p, ok := Geometry(Boundary{{Lat: 34.05, Lng: -118.24}}).(orb.Point)
	if !ok {
		t.Fatal("expected orb.Point for a single point")
	}
	if p.Lon() != -118.24 || p.Lat() != 34.05 {
		t.Errorf("point axes swapped: %v", p)
	}

	if _, ok := Geometry(Boundary{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}).(orb.LineString); !ok {
		t.Error("expected orb.LineString for two points")
	}

	poly, ok := Geometry(square).(orb.Polygon)
	if !ok {
		t.Fatal("expected orb.Polygon for a square")
	}
	r := poly[0]
	if len(r) != len(square)+1 || !r[0].Equal(r[len(r)-1]) {
		t.Errorf("expected closed ring of %d points, got %v", len(square)+1, r)
	}
}

func TestGeometry_AlreadyClosedRing(t *testing.T) {
	closed := append(Boundary{}, square...)
	closed = append(closed, square[0])
	poly := Geometry(closed).(orb.Polygon)
	if len(poly[0]) != len(closed) {
		t.Errorf("closed ring should not be closed twice: %d points", len(poly[0]))
	}
}

func TestFeature(t *testing.T) {
	if Feature(nil, nil) != nil {
		t.Error("expected nil feature for empty boundary")
	}
	f := Feature(square, map[string]interface{}{"id": 7})
	if f.Properties["id"] != 7 {
		t.Errorf("expected id property, got %v", f.Properties)
	}
	if f.Geometry.GeoJSONType() != "Polygon" {
		t.Errorf("expected Polygon, got %s", f.Geometry.GeoJSONType())
	}
}
