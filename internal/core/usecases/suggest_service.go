package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/landledger/landledger/internal/core/domain"
	"github.com/landledger/landledger/internal/core/ports"
	"github.com/landledger/landledger/internal/pkg/geometry"
	"github.com/landledger/landledger/internal/pkg/metrics"
)

const maxDescriptionLen = 500

// SuggestService asks a language model for coordinates matching a description.
type SuggestService struct {
	suggester ports.LocationSuggester
}

// NewSuggestService creates a new SuggestService.
func NewSuggestService(suggester ports.LocationSuggester) *SuggestService {
	return &SuggestService{suggester: suggester}
}

// Suggest returns the model's coordinates for description. The reply must be
// a location string the map can display.
func (s *SuggestService) Suggest(ctx context.Context, description string) (*domain.LocationSuggestion, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: location description must not be empty", domain.ErrInvalidInput)
	}
	if len(description) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: location description too long (max %d characters)", domain.ErrInvalidInput, maxDescriptionLen)
	}
	if s.suggester == nil {
		return nil, fmt.Errorf("location suggestions are not configured")
	}

	raw, err := s.suggester.SuggestLocation(ctx, description)
	if err != nil {
		metrics.LocationSuggestions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("suggest location: %w", err)
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`\"")

	loc := geometry.ParseLocation(raw)
	if !loc.OK() {
		metrics.LocationSuggestions.WithLabelValues("unparsable").Inc()
		return nil, fmt.Errorf("%w: %w: model returned %q", domain.ErrInvalidInput, domain.ErrUnparsableLocation, raw)
	}
	metrics.LocationSuggestions.WithLabelValues("ok").Inc()

	center := geometry.Centroid(loc.Boundary)
	return &domain.LocationSuggestion{
		Description:    description,
		GPSCoordinates: raw,
		Center:         &center,
	}, nil
}
