package service

import (
	"context"
	"fmt"
	"sort"

	"surplus-market/internal/geo"
	"surplus-market/internal/model"
	"surplus-market/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// discoveryService implements DiscoveryService.
type discoveryService struct {
	offers repository.OfferRepository
	clock  clockwork.Clock
	logger zerolog.Logger
}

// NewDiscoveryService creates a new discovery service.
func NewDiscoveryService(offers repository.OfferRepository, clock clockwork.Clock, logger zerolog.Logger) DiscoveryService {
	return &discoveryService{
		offers: offers,
		clock:  clock,
		logger: logger.With().Str("service", "discovery").Logger(),
	}
}

// Search returns discoverable offers. With a location, results are limited to
// the radius and sorted by distance; otherwise newest first.
func (s *discoveryService) Search(ctx context.Context, filter model.OfferFilter) (model.PageResult[model.OfferListing], error) {
	now := s.clock.Now()
	filter.Page = filter.Page.Normalize()

	if filter.Location != nil {
		return s.searchNearby(ctx, filter)
	}

	items, err := s.offers.Search(ctx, filter, now)
	if err != nil {
		return model.PageResult[model.OfferListing]{}, fmt.Errorf("failed to search offers: %w", err)
	}
	total, err := s.offers.Count(ctx, filter, now)
	if err != nil {
		return model.PageResult[model.OfferListing]{}, fmt.Errorf("failed to count offers: %w", err)
	}
	return model.NewPageResult(items, total, filter.Page), nil
}

func (s *discoveryService) searchNearby(ctx context.Context, filter model.OfferFilter) (model.PageResult[model.OfferListing], error) {
	radius := filter.RadiusKm
	if radius <= 0 {
		radius = model.DefaultSearchRadiusKm
	}
	center := geo.Point{Lat: filter.Location.Latitude, Lon: filter.Location.Longitude}
	box := geo.BoundingBox(center, radius)

	candidates, err := s.offers.SearchWithin(ctx, filter, model.Bounds{
		MinLat: box.MinLat,
		MaxLat: box.MaxLat,
		MinLon: box.MinLon,
		MaxLon: box.MaxLon,
	}, s.clock.Now())
	if err != nil {
		return model.PageResult[model.OfferListing]{}, fmt.Errorf("failed to search offers: %w", err)
	}

	nearby := make([]model.OfferListing, 0, len(candidates))
	for _, c := range candidates {
		d := geo.DistanceKm(center, geo.Point{Lat: c.Latitude, Lon: c.Longitude})
		if d > radius {
			continue
		}
		c.DistanceKm = &d
		nearby = append(nearby, c)
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return *nearby[i].DistanceKm < *nearby[j].DistanceKm
	})

	total := len(nearby)
	start := min(filter.Page.Offset(), total)
	end := min(start+filter.Page.Limit, total)

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("within_radius", total).
		Float64("radius_km", radius).
		Msg("nearby search")
	return model.NewPageResult(nearby[start:end], total, filter.Page), nil
}
