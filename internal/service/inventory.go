package service

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Inventory reserves and releases offer units. Every quantity change goes
// through one conditional statement so concurrent callers serialize on the
// offer row.
type Inventory struct {
	offers repository.OfferRepository
	logger zerolog.Logger
}

// NewInventory creates an Inventory.
func NewInventory(offers repository.OfferRepository, logger zerolog.Logger) *Inventory {
	return &Inventory{
		offers: offers,
		logger: logger.With().Str("component", "inventory").Logger(),
	}
}

// Reserve takes qty units within tx. When nothing was reserved it explains why
// with ErrOfferNotFound, ErrOfferExpired, ErrOfferUnavailable or an
// insufficient quantity error. On ErrOfferExpired the caller should roll back
// and call MarkExpired.
func (i *Inventory) Reserve(ctx context.Context, tx pgx.Tx, offerID uuid.UUID, qty int, now time.Time) (*model.Offer, error) {
	offer, err := i.offers.Reserve(ctx, tx, offerID, qty, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve units: %w", err)
	}
	if offer != nil {
		return offer, nil
	}

	current, err := i.offers.GetByIDTx(ctx, tx, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve units: %w", err)
	}

	switch {
	case current == nil:
		return nil, model.ErrOfferNotFound
	case current.Status == model.OfferStatusCancelled:
		return nil, model.ErrOfferUnavailable
	case current.Status == model.OfferStatusExpired,
		current.Status == model.OfferStatusActive && !current.PickupEndTime.After(now):
		return nil, model.ErrOfferExpired
	case current.Status != model.OfferStatusActive:
		return nil, model.ErrOfferUnavailable
	default:
		return nil, model.NewInsufficientQuantityError(current.AvailableQuantity)
	}
}

// MarkExpired flips an ACTIVE offer whose window ended to EXPIRED.
func (i *Inventory) MarkExpired(ctx context.Context, offerID uuid.UUID, now time.Time) {
	expired, err := i.offers.MarkExpired(ctx, offerID, now)
	if err != nil {
		i.logger.Error().Err(err).Str("offer_id", offerID.String()).Msg("failed to expire offer")
		return
	}
	if expired {
		i.logger.Info().Str("offer_id", offerID.String()).Msg("offer expired")
	}
}

// Release returns qty units within tx.
func (i *Inventory) Release(ctx context.Context, tx pgx.Tx, offerID uuid.UUID, qty int, now time.Time) error {
	offer, err := i.offers.Release(ctx, tx, offerID, qty, now)
	if err != nil {
		return fmt.Errorf("failed to release units: %w", err)
	}
	if offer == nil {
		i.logger.Warn().Str("offer_id", offerID.String()).Msg("released units of a missing offer")
	}
	return nil
}

// Withdrawn reports whether the restaurant cancelled the offer. The offer row
// stays share-locked until tx ends, so a concurrent cancellation either
// committed before the read or waits for tx.
func (i *Inventory) Withdrawn(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) (bool, error) {
	offer, err := i.offers.GetForShare(ctx, tx, offerID)
	if err != nil {
		return false, fmt.Errorf("failed to read offer status: %w", err)
	}
	return offer != nil && offer.Status == model.OfferStatusCancelled, nil
}
