package usecases

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/pkg/geometry"
	"github.com/landledger/landledger/internal/pkg/metrics"
)

// DefaultMapCenter is used when no land can be drawn (downtown Los Angeles).
var DefaultMapCenter = geometry.Point{Lat: 34.0522, Lng: -118.2437}

// MapService derives map views and drawing drafts from land locations.
type MapService struct{}

// NewMapService creates a new MapService.
func NewMapService() *MapService {
	return &MapService{}
}

// Markers turns lands into map markers. Lands whose location cannot be parsed
// are left out and counted in Skipped.
func (s *MapService) Markers(lands []domain.Land) domain.MapView {
	records := make([]string, len(lands))
	for i, l := range lands {
		records[i] = l.Location
	}

	items, skipped := geometry.FilterDisplayable(records)
	view := domain.MapView{
		Markers: make([]domain.LandMarker, 0, len(items)),
		Skipped: skipped,
		Center:  DefaultMapCenter,
	}
	for _, it := range items {
		view.Markers = append(view.Markers, domain.LandMarker{
			Land:        lands[it.Index],
			Kind:        it.Kind.String(),
			Coordinates: it.Boundary,
			Center:      it.Center,
		})
	}
	if len(view.Markers) > 0 {
		view.Center = view.Markers[0].Center
	}
	if skipped > 0 {
		metrics.UnparsableLocations.Add(float64(skipped))
		view.Note = fmt.Sprintf("%d land(s) could not be displayed on the map due to missing or invalid coordinates.", skipped)
	}
	return view
}

// GeoJSON renders the drawable lands as a FeatureCollection.
func (s *MapService) GeoJSON(lands []domain.Land) (*geojson.FeatureCollection, int) {
	view := s.Markers(lands)
	fc := geojson.NewFeatureCollection()
	for _, m := range view.Markers {
		f := geometry.Feature(m.Coordinates, map[string]interface{}{
			"id":            m.Land.ID,
			"owner_name":    m.Land.OwnerName,
			"owner_address": m.Land.OwnerAddress,
			"area":          m.Land.Area,
			"center_lat":    m.Center.Lat,
			"center_lng":    m.Center.Lng,
		})
		if f != nil {
			fc.Append(f)
		}
	}
	return fc, view.Skipped
}

// Draft serializes a drawn boundary and estimates its area for the
// registration form. An empty drawing clears both values.
func (s *MapService) Draft(points geometry.Boundary) (domain.BoundaryDraft, error) {
	if len(points) == 0 {
		return domain.BoundaryDraft{AreaText: "0.00"}, nil
	}
	loc, err := geometry.Serialize(points)
	if err != nil {
		return domain.BoundaryDraft{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	area := geometry.EstimateArea(points)
	return domain.BoundaryDraft{
		Location:     loc,
		Area:         area,
		AreaText:     fmt.Sprintf("%.2f", area),
		GeodesicArea: geometry.GeodesicArea(points),
		PointCount:   len(points),
	}, nil
}

// Parse exposes the location parser for clients that only hold the string.
func (s *MapService) Parse(record string) geometry.Location {
	return geometry.ParseLocation(record)
}
