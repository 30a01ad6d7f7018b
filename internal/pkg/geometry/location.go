package geometry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags how a location string was understood.
type Kind int

const (
	KindUnparsable Kind = iota
	KindStructured      // JSON array of {lat, lng}
	KindFlat            // "lat,lng"
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindFlat:
		return "flat"
	default:
		return "unparsable"
	}
}

// Location is the result of ParseLocation. Boundary is empty when Kind is
// KindUnparsable.
type Location struct {
	Kind     Kind     `json:"kind"`
	Boundary Boundary `json:"boundary,omitempty"`
}

// OK reports whether the location can be displayed.
func (l Location) OK() bool {
	return l.Kind != KindUnparsable && len(l.Boundary) > 0
}

// MarshalJSON renders Kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ParseLocation decodes a stored location string. The structured JSON form is
// always tried first; the flat "lat,lng" form is the fallback.
func ParseLocation(record string) Location {
	if b, ok := parseStructured(record); ok {
		return Location{Kind: KindStructured, Boundary: b}
	}
	if p, ok := parseFlat(record); ok {
		return Location{Kind: KindFlat, Boundary: Boundary{p}}
	}
	return Location{Kind: KindUnparsable}
}

// parseStructured requires every element to be an object with the exact
// keys "lat" and "lng" holding numbers. Key matching is case-sensitive.
func parseStructured(record string) (Boundary, bool) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(record), &raw); err != nil {
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	b := make(Boundary, 0, len(raw))
	for _, obj := range raw {
		lat, ok := number(obj, "lat")
		if !ok {
			return nil, false
		}
		lng, ok := number(obj, "lng")
		if !ok {
			return nil, false
		}
		b = append(b, Point{Lat: lat, Lng: lng})
	}
	return b, true
}

func number(obj map[string]json.RawMessage, key string) (float64, bool) {
	data, ok := obj[key]
	if !ok {
		return 0, false
	}
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil || v == nil {
		return 0, false
	}
	return *v, true
}

func parseFlat(record string) (Point, bool) {
	parts := strings.Split(record, ",")
	if len(parts) != 2 {
		return Point{}, false
	}
	lat, ok := parseFinite(parts[0])
	if !ok {
		return Point{}, false
	}
	lng, ok := parseFinite(parts[1])
	if !ok {
		return Point{}, false
	}
	return Point{Lat: lat, Lng: lng}, true
}

func parseFinite(token string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Serialize encodes b in the structured form read by ParseLocation.
func Serialize(b Boundary) (string, error) {
	if b == nil {
		b = Boundary{}
	}
	for i, p := range b {
		if !finite(p.Lat) || !finite(p.Lng) {
			return "", fmt.Errorf("point %d: non-finite coordinate (%v, %v)", i, p.Lat, p.Lng)
		}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal boundary: %w", err)
	}
	return string(data), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
