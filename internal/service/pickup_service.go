package service

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"
	"surplus-market/internal/notify"
	"surplus-market/internal/pickup"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// pickupService implements PickupService.
type pickupService struct {
	orders       repository.OrderRepository
	transactions repository.TransactionRepository
	notifier     Notifier
	deferrer     Deferrer
	clock        clockwork.Clock
	logger       zerolog.Logger
}

// NewPickupService creates a new pickup service.
func NewPickupService(
	orders repository.OrderRepository,
	transactions repository.TransactionRepository,
	notifier Notifier,
	deferrer Deferrer,
	clock clockwork.Clock,
	logger zerolog.Logger,
) PickupService {
	return &pickupService{
		orders:       orders,
		transactions: transactions,
		notifier:     notifier,
		deferrer:     deferrer,
		clock:        clock,
		logger:       logger.With().Str("service", "pickup").Logger(),
	}
}

// checkRedeemable reports why order cannot be picked up at now.
func checkRedeemable(order *model.Order, now time.Time) error {
	if order.Status != model.OrderStatusConfirmed && order.Status != model.OrderStatusReadyForPickup {
		return model.NewNotReadyForPickupError(order.Status)
	}
	if !order.InPickupWindow(now) {
		return model.NewOutsidePickupWindowError(order.PickupStartTime, order.PickupEndTime)
	}
	return nil
}

// Validate checks a code without redeeming it.
func (s *pickupService) Validate(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error) {
	code = pickup.NormalizeCode(code)
	if !pickup.ValidCode(code) {
		return nil, model.ErrInvalidPickupCode
	}

	order, err := s.orders.GetByCode(ctx, restaurantID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to validate pickup code: %w", err)
	}
	if order == nil {
		s.logger.Warn().Str("restaurant_id", restaurantID.String()).Msg("unknown pickup code")
		return nil, model.ErrInvalidPickupCode
	}

	if err := checkRedeemable(order, s.clock.Now()); err != nil {
		return nil, err
	}
	return order, nil
}

// Redeem completes the order for code and settles its transaction.
func (s *pickupService) Redeem(ctx context.Context, restaurantID uuid.UUID, code string) (_ *model.Order, err error) {
	code = pickup.NormalizeCode(code)
	if !pickup.ValidCode(code) {
		return nil, model.ErrInvalidPickupCode
	}

	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to redeem pickup code: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	order, err := s.orders.GetByCodeForUpdate(ctx, tx, restaurantID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem pickup code: %w", err)
	}
	if order == nil {
		return nil, model.ErrInvalidPickupCode
	}

	if order.Status == model.OrderStatusCompleted {
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to redeem pickup code: %w", err)
		}
		s.logger.Debug().Str("order_id", order.ID.String()).Msg("order already collected")
		return order, nil
	}

	now := s.clock.Now()
	if err = checkRedeemable(order, now); err != nil {
		return nil, err
	}

	if err = s.orders.MarkCompleted(ctx, tx, order.ID, now); err != nil {
		return nil, fmt.Errorf("failed to redeem pickup code: %w", err)
	}
	processed, err := s.transactions.MarkProcessed(ctx, tx, order.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem pickup code: %w", err)
	}
	if !processed {
		s.logger.Warn().Str("order_id", order.ID.String()).Msg("no pending transaction for collected order")
	}

	order.Status = model.OrderStatusCompleted
	order.PickupTime = &now
	order.UpdatedAt = now

	if err = s.notifier.Notify(ctx, tx, notify.PickupCompleted(order)); err != nil {
		return nil, fmt.Errorf("failed to redeem pickup code: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to redeem pickup code: %w", err)
	}

	s.scheduleReviewRequest(order)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("restaurant_id", restaurantID.String()).
		Msg("order collected")
	return order, nil
}

func (s *pickupService) scheduleReviewRequest(order *model.Order) {
	msg := notify.ReviewRequest(order)
	err := s.deferrer.After(model.ReviewRequestDelay, "review-request", func(ctx context.Context) {
		if err := s.notifier.Notify(ctx, nil, msg); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to send review request")
		}
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to schedule review request")
	}
}
