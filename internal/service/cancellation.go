package service

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"
	"surplus-market/internal/notify"
	"surplus-market/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderCanceller cancels locked orders and refunds them. Payment
// reconciliation uses it for orders whose offer was withdrawn while the
// payment was pending.
type orderCanceller struct {
	orders    repository.OrderRepository
	consumers repository.ConsumerRepository
	inventory *Inventory
	notifier  Notifier
	refunder  Refunder
	logger    zerolog.Logger
}

// NewOrderCanceller creates the canceller used for orders of withdrawn offers.
func NewOrderCanceller(
	orders repository.OrderRepository,
	consumers repository.ConsumerRepository,
	inventory *Inventory,
	notifier Notifier,
	refunder Refunder,
	logger zerolog.Logger,
) OrderCanceller {
	return newOrderCanceller(orders, consumers, inventory, notifier, refunder, logger)
}

func newOrderCanceller(
	orders repository.OrderRepository,
	consumers repository.ConsumerRepository,
	inventory *Inventory,
	notifier Notifier,
	refunder Refunder,
	logger zerolog.Logger,
) *orderCanceller {
	return &orderCanceller{
		orders:    orders,
		consumers: consumers,
		inventory: inventory,
		notifier:  notifier,
		refunder:  refunder,
		logger:    logger.With().Str("component", "canceller").Logger(),
	}
}

// cancel moves a locked order to CANCELLED/REFUNDED and returns its units.
func (c *orderCanceller) cancel(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) error {
	if err := c.orders.UpdateState(ctx, tx, order.ID, model.OrderStatusCancelled, model.PaymentStatusRefunded, now); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if err := c.inventory.Release(ctx, tx, order.OfferID, order.Quantity, now); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	order.Status = model.OrderStatusCancelled
	order.PaymentStatus = model.PaymentStatusRefunded
	order.UpdatedAt = now
	return nil
}

// CancelForOffer cancels a locked order of a withdrawn offer and credits the consumer.
func (c *orderCanceller) CancelForOffer(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) (decimal.Decimal, error) {
	if err := c.cancel(ctx, tx, order, now); err != nil {
		return decimal.Zero, err
	}

	credit := goodwillCredit(order)
	if err := c.consumers.AddCredit(ctx, tx, order.ConsumerID, credit); err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit consumer: %w", err)
	}
	if err := c.notifier.Notify(ctx, tx, notify.OfferCancelled(order, credit)); err != nil {
		return decimal.Zero, fmt.Errorf("failed to notify consumer: %w", err)
	}

	c.logger.Info().
		Str("order_id", order.ID.String()).
		Str("consumer_id", order.ConsumerID.String()).
		Str("credit", credit.StringFixed(2)).
		Msg("order cancelled with offer")
	return credit, nil
}

// Refund requests a gateway refund. Orders that never reached the gateway are skipped.
func (c *orderCanceller) Refund(ctx context.Context, order *model.Order) {
	if order.PaymentID == nil || *order.PaymentID == "" {
		c.logger.Debug().Str("order_id", order.ID.String()).Msg("no payment to refund")
		return
	}
	if err := c.refunder.RefundPayment(ctx, *order.PaymentID); err != nil {
		c.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("payment_id", *order.PaymentID).
			Msg("refund request failed")
		return
	}
	c.logger.Info().
		Str("order_id", order.ID.String()).
		Str("payment_id", *order.PaymentID).
		Msg("refund requested")
}
