package service

import (
	"context"
	"fmt"

	"surplus-market/internal/model"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// profileService implements ProfileService.
type profileService struct {
	consumers   repository.ConsumerRepository
	restaurants repository.RestaurantRepository
	logger      zerolog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(consumers repository.ConsumerRepository, restaurants repository.RestaurantRepository, logger zerolog.Logger) ProfileService {
	return &profileService{
		consumers:   consumers,
		restaurants: restaurants,
		logger:      logger.With().Str("service", "profile").Logger(),
	}
}

// ConsumerProfile retrieves the consumer's own profile.
func (s *profileService) ConsumerProfile(ctx context.Context, consumerID uuid.UUID) (*model.Consumer, error) {
	consumer, err := s.consumers.GetByID(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer profile: %w", err)
	}
	if consumer == nil {
		return nil, model.ErrConsumerNotFound
	}
	return consumer, nil
}

// UpdateConsumerProfile edits the consumer's name.
func (s *profileService) UpdateConsumerProfile(ctx context.Context, consumerID uuid.UUID, update model.ConsumerProfileUpdate) (*model.Consumer, error) {
	consumer, err := s.consumers.UpdateProfile(ctx, consumerID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update consumer profile: %w", err)
	}
	if consumer == nil {
		return nil, model.ErrConsumerNotFound
	}

	s.logger.Info().Str("consumer_id", consumerID.String()).Msg("consumer profile updated")
	return consumer, nil
}

// RestaurantProfile retrieves the restaurant's own profile.
func (s *profileService) RestaurantProfile(ctx context.Context, restaurantID uuid.UUID) (*model.Restaurant, error) {
	restaurant, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant profile: %w", err)
	}
	if restaurant == nil {
		return nil, model.ErrRestaurantNotFound
	}
	return restaurant, nil
}

// UpdateRestaurantProfile edits the restaurant's name, address and location.
// Discovery distances follow the new coordinates immediately.
func (s *profileService) UpdateRestaurantProfile(ctx context.Context, restaurantID uuid.UUID, update model.RestaurantProfileUpdate) (*model.Restaurant, error) {
	if (update.Latitude == nil) != (update.Longitude == nil) {
		return nil, model.ErrInvalidLocation
	}

	restaurant, err := s.restaurants.UpdateProfile(ctx, restaurantID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update restaurant profile: %w", err)
	}
	if restaurant == nil {
		return nil, model.ErrRestaurantNotFound
	}

	s.logger.Info().
		Str("restaurant_id", restaurantID.String()).
		Bool("moved", update.Latitude != nil).
		Msg("restaurant profile updated")
	return restaurant, nil
}
