package service

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// offerService implements OfferService.
type offerService struct {
	offers      repository.OfferRepository
	orders      repository.OrderRepository
	restaurants repository.RestaurantRepository
	canceller   OrderCanceller
	clock       clockwork.Clock
	logger      zerolog.Logger
}

// NewOfferService creates a new offer service.
func NewOfferService(
	offers repository.OfferRepository,
	orders repository.OrderRepository,
	restaurants repository.RestaurantRepository,
	canceller OrderCanceller,
	clock clockwork.Clock,
	logger zerolog.Logger,
) OfferService {
	return &offerService{
		offers:      offers,
		orders:      orders,
		restaurants: restaurants,
		canceller:   canceller,
		clock:       clock,
		logger:      logger.With().Str("service", "offer").Logger(),
	}
}

// CreateOffer validates spec and publishes the offer.
func (s *offerService) CreateOffer(ctx context.Context, restaurantID uuid.UUID, spec model.OfferSpec) (*model.Offer, error) {
	now := s.clock.Now()
	if err := validateOfferSpec(spec, now); err != nil {
		s.logger.Warn().
			Err(err).
			Str("restaurant_id", restaurantID.String()).
			Msg("offer rejected")
		return nil, err
	}

	restaurant, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	if restaurant == nil {
		return nil, model.ErrRestaurantNotFound
	}
	if !restaurant.IsApproved {
		return nil, model.ErrRestaurantNotApproved
	}

	offer := &model.Offer{
		ID:                uuid.New(),
		RestaurantID:      restaurantID,
		PackageType:       spec.PackageType,
		Description:       spec.Description,
		Quantity:          spec.Quantity,
		AvailableQuantity: spec.Quantity,
		OriginalPrice:     spec.OriginalPrice,
		PromotionalPrice:  spec.PromotionalPrice,
		DiscountPercent:   discountPercent(spec.OriginalPrice, spec.PromotionalPrice),
		PickupStartTime:   spec.PickupStartTime,
		PickupEndTime:     spec.PickupEndTime,
		IsVegetarian:      spec.IsVegetarian,
		IsVegan:           spec.IsVegan,
		Status:            model.OfferStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	s.logger.Info().
		Str("offer_id", offer.ID.String()).
		Str("restaurant_id", restaurantID.String()).
		Int("quantity", offer.Quantity).
		Msg("offer created")
	return offer, nil
}

// validateOfferSpec checks the business rules of a new offer.
func validateOfferSpec(spec model.OfferSpec, now time.Time) error {
	if spec.Quantity < model.MinOfferQuantity || spec.Quantity > model.MaxOfferQuantity {
		return model.ErrInvalidQuantity
	}
	if !spec.OriginalPrice.IsPositive() || !spec.PromotionalPrice.IsPositive() {
		return model.ErrInvalidPrice
	}
	if !meetsMinDiscount(spec.OriginalPrice, spec.PromotionalPrice) {
		return model.ErrDiscountTooLow
	}

	window := spec.PickupEndTime.Sub(spec.PickupStartTime)
	if window < model.MinPickupWindow || window > model.MaxPickupWindow {
		return model.ErrInvalidPickupWindow
	}
	if !spec.PickupEndTime.After(now) {
		return model.ErrInvalidPickupWindow
	}
	return nil
}

// GetOffer retrieves an offer by ID.
func (s *offerService) GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	offer, err := s.offers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	if offer == nil {
		return nil, model.ErrOfferNotFound
	}
	return offer, nil
}

// CancelOffer withdraws the offer. Order rows are locked before the offer row,
// the same order used by payment reconciliation and the no-show sweep.
func (s *offerService) CancelOffer(ctx context.Context, restaurantID, offerID uuid.UUID) (_ *model.Offer, err error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel offer: %w", err)
	}
	if offer == nil {
		return nil, model.ErrOfferNotFound
	}
	if offer.RestaurantID != restaurantID {
		s.logger.Warn().
			Str("offer_id", offerID.String()).
			Str("restaurant_id", restaurantID.String()).
			Msg("offer cancel by non-owner")
		return nil, model.ErrNotOfferOwner
	}
	if offer.Status == model.OfferStatusCancelled {
		return offer, nil
	}

	tx, err := s.offers.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to cancel offer: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	now := s.clock.Now()
	if _, err = s.orders.ListActiveByOfferForUpdate(ctx, tx, offerID); err != nil {
		return nil, fmt.Errorf("failed to cancel offer: %w", err)
	}

	changed, err := s.offers.Cancel(ctx, tx, offerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel offer: %w", err)
	}

	// Cancel waits for payments holding the offer row, so list again to pick
	// up orders they confirmed in the meantime.
	orders, err := s.orders.ListActiveByOfferForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel offer: %w", err)
	}

	for i := range orders {
		if _, err = s.canceller.CancelForOffer(ctx, tx, &orders[i], now); err != nil {
			s.logger.Error().
				Err(err).
				Str("offer_id", offerID.String()).
				Str("order_id", orders[i].ID.String()).
				Msg("failed to cancel order of offer")
			return nil, fmt.Errorf("failed to cancel offer: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("offer_id", offerID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to cancel offer: %w", err)
	}

	for i := range orders {
		s.canceller.Refund(ctx, &orders[i])
	}

	if changed {
		offer.Status = model.OfferStatusCancelled
		offer.UpdatedAt = now
	}

	s.logger.Info().
		Str("offer_id", offerID.String()).
		Int("cancelled_orders", len(orders)).
		Msg("offer cancelled")
	return offer, nil
}
