package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"surplus-market/internal/gateway"
	"surplus-market/internal/model"
	"surplus-market/internal/notify"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Outcome describes what a notification did to an order.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeWithdrawn    Outcome = "withdrawn"
	OutcomeNoOp         Outcome = "no_op"
	OutcomeStale        Outcome = "stale"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeUnknownOrder Outcome = "unknown_order"
)

// transition is the effect of a gateway status on an order.
type transition int

const (
	transitionNone transition = iota
	transitionStale
	transitionConfirm
	transitionRefuse
	transitionRefund
	transitionWithdraw
)

// decideTransition applies only forward or idempotent moves. Terminal orders
// and orders past payment never go back to an earlier state.
func decideTransition(current model.OrderStatus, target model.OrderStatus, payment model.PaymentStatus) transition {
	switch current {
	case model.OrderStatusPendingPayment:
		switch target {
		case model.OrderStatusConfirmed:
			return transitionConfirm
		case model.OrderStatusCancelled:
			return transitionRefuse
		default:
			return transitionNone
		}
	case model.OrderStatusConfirmed, model.OrderStatusReadyForPickup:
		switch {
		case target == model.OrderStatusConfirmed:
			return transitionNone
		case target == model.OrderStatusCancelled && payment == model.PaymentStatusRefunded:
			return transitionRefund
		default:
			return transitionStale
		}
	default:
		if target == current {
			return transitionNone
		}
		return transitionStale
	}
}

// RetryPolicy bounds internal redelivery of notifications that failed transiently.
type RetryPolicy struct {
	Delay    time.Duration
	Attempts int
}

// PaymentProcessor starts payments and reconciles their notifications.
type PaymentProcessor interface {
	PaymentService
	PaymentInitiator
}

// paymentService implements PaymentProcessor.
type paymentService struct {
	orders       repository.OrderRepository
	transactions repository.TransactionRepository
	inventory    *Inventory
	canceller    OrderCanceller
	notifier     Notifier
	client       gateway.Client
	deferrer     Deferrer
	retry        RetryPolicy
	clock        clockwork.Clock
	logger       zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	orders repository.OrderRepository,
	transactions repository.TransactionRepository,
	inventory *Inventory,
	canceller OrderCanceller,
	notifier Notifier,
	client gateway.Client,
	deferrer Deferrer,
	retry RetryPolicy,
	clock clockwork.Clock,
	logger zerolog.Logger,
) PaymentProcessor {
	return &paymentService{
		orders:       orders,
		transactions: transactions,
		inventory:    inventory,
		canceller:    canceller,
		notifier:     notifier,
		client:       client,
		deferrer:     deferrer,
		retry:        retry,
		clock:        clock,
		logger:       logger.With().Str("service", "payment").Logger(),
	}
}

// InitiatePayment creates the gateway charge for a new order. A status the
// gateway decides synchronously is applied at once.
func (s *paymentService) InitiatePayment(ctx context.Context, order *model.Order, payer *model.Consumer) (*model.PaymentSession, error) {
	checkout, err := s.client.CreatePayment(ctx, gateway.PaymentRequest{
		OrderID:     order.ID,
		Method:      order.PaymentMethod,
		Amount:      order.TotalAmount,
		UnitPrice:   order.PromotionalPrice,
		Quantity:    order.Quantity,
		Description: fmt.Sprintf("Surplus package x%d", order.Quantity),
		Payer: gateway.Payer{
			Email: payer.Email,
			Name:  payer.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	session := &model.PaymentSession{
		PaymentID:    checkout.PaymentID,
		Status:       checkout.Status,
		QRCode:       checkout.QRCode,
		QRCodeBase64: checkout.QRCodeBase64,
		CheckoutURL:  checkout.CheckoutURL,
	}
	if checkout.PaymentID == "" {
		session.PaymentID = checkout.PreferenceID
		return session, nil
	}

	if err := s.orders.SetPaymentID(ctx, nil, order.ID, checkout.PaymentID); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to store payment id")
	} else {
		order.PaymentID = &checkout.PaymentID
	}

	if checkout.Status != "" && checkout.Status != gateway.StatusPending {
		if _, err := s.ApplyPaymentStatus(ctx, order.ID, checkout.PaymentID, checkout.Status); err != nil {
			s.logger.Warn().
				Err(err).
				Str("order_id", order.ID.String()).
				Str("payment_id", checkout.PaymentID).
				Msg("synchronous payment status not applied")
		}
	}
	return session, nil
}

// Ingest handles n and schedules a retry when it failed transiently.
func (s *paymentService) Ingest(ctx context.Context, n gateway.Notification) {
	s.ingest(ctx, n, 1)
}

func (s *paymentService) ingest(ctx context.Context, n gateway.Notification, attempt int) {
	outcome, err := s.HandleNotification(ctx, n)
	if err == nil {
		s.logger.Debug().Str("outcome", string(outcome)).Int("attempt", attempt).Msg("notification handled")
		return
	}

	if attempt > s.retry.Attempts {
		s.logger.Error().Err(err).Int("attempt", attempt).Msg("notification dropped after retries")
		return
	}

	s.logger.Warn().
		Err(err).
		Int("attempt", attempt).
		Dur("retry_in", s.retry.Delay).
		Msg("notification failed, retrying")

	next := attempt + 1
	if serr := s.deferrer.After(s.retry.Delay, "payment-notification-retry", func(ctx context.Context) {
		s.ingest(ctx, n, next)
	}); serr != nil {
		s.logger.Error().Err(serr).Msg("failed to schedule notification retry")
	}
}

// HandleNotification processes one notification.
func (s *paymentService) HandleNotification(ctx context.Context, n gateway.Notification) (Outcome, error) {
	switch n := n.(type) {
	case gateway.PaymentNotification:
		return s.handlePayment(ctx, n)
	case gateway.UnrecognizedNotification:
		s.logger.Debug().Str("type", n.Type).Msg("ignoring notification")
		return OutcomeIgnored, nil
	default:
		s.logger.Debug().Msg("ignoring notification of unknown shape")
		return OutcomeIgnored, nil
	}
}

func (s *paymentService) handlePayment(ctx context.Context, n gateway.PaymentNotification) (Outcome, error) {
	if n.PaymentID == "" {
		return OutcomeIgnored, nil
	}

	payment, err := s.client.GetPayment(ctx, n.PaymentID)
	if err != nil {
		var apiErr *gateway.APIError
		switch {
		case errors.Is(err, gateway.ErrPaymentNotFound):
			s.logger.Warn().Str("payment_id", n.PaymentID).Msg("payment unknown to gateway")
			return OutcomeIgnored, nil
		case errors.As(err, &apiErr):
			s.logger.Error().Err(err).Str("payment_id", n.PaymentID).Msg("gateway rejected payment lookup")
			return OutcomeIgnored, nil
		default:
			return "", fmt.Errorf("failed to fetch payment %s: %w", n.PaymentID, err)
		}
	}

	orderID, err := uuid.Parse(payment.OrderID)
	if err != nil {
		id, ferr := s.orders.FindIDByPaymentID(ctx, payment.ID)
		if ferr != nil {
			return "", fmt.Errorf("failed to resolve order of payment %s: %w", payment.ID, ferr)
		}
		if id == nil {
			s.logger.Warn().
				Str("payment_id", payment.ID).
				Str("reference", payment.OrderID).
				Msg("payment does not reference a known order")
			return OutcomeUnknownOrder, nil
		}
		orderID = *id
	}

	return s.ApplyPaymentStatus(ctx, orderID, payment.ID, payment.Status)
}

// ApplyPaymentStatus locks the order and applies the mapped gateway status.
func (s *paymentService) ApplyPaymentStatus(ctx context.Context, orderID uuid.UUID, paymentID, status string) (_ Outcome, err error) {
	paymentStatus, target := gateway.MapStatus(status)
	log := s.logger.With().
		Str("order_id", orderID.String()).
		Str("payment_id", paymentID).
		Str("gateway_status", status).
		Logger()

	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to begin transaction")
		return "", fmt.Errorf("failed to apply payment status: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	order, err := s.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to apply payment status: %w", err)
	}

	outcome := OutcomeUnknownOrder
	if order != nil {
		outcome, err = s.apply(ctx, tx, order, paymentID, target, paymentStatus)
		if err != nil {
			return "", err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("failed to commit transaction")
		return "", fmt.Errorf("failed to apply payment status: %w", err)
	}

	if outcome == OutcomeWithdrawn {
		s.canceller.Refund(ctx, order)
	}

	event := log.Info()
	if outcome != OutcomeApplied && outcome != OutcomeWithdrawn {
		event = log.Debug()
	}
	event.Str("outcome", string(outcome)).Msg("payment status reconciled")
	return outcome, nil
}

func (s *paymentService) apply(
	ctx context.Context,
	tx pgx.Tx,
	order *model.Order,
	paymentID string,
	target model.OrderStatus,
	paymentStatus model.PaymentStatus,
) (Outcome, error) {
	if order.PaymentID == nil && paymentID != "" {
		if err := s.orders.SetPaymentID(ctx, tx, order.ID, paymentID); err != nil {
			return "", fmt.Errorf("failed to apply payment status: %w", err)
		}
		order.PaymentID = &paymentID
	}

	now := s.clock.Now()
	move := decideTransition(order.Status, target, paymentStatus)
	if move == transitionConfirm {
		withdrawn, err := s.inventory.Withdrawn(ctx, tx, order.OfferID)
		if err != nil {
			return "", fmt.Errorf("failed to apply payment status: %w", err)
		}
		if withdrawn {
			move = transitionWithdraw
		}
	}

	switch move {
	case transitionWithdraw:
		// Paid after the restaurant withdrew the offer: cancel, credit and refund.
		if _, err := s.canceller.CancelForOffer(ctx, tx, order, now); err != nil {
			return "", err
		}
		return OutcomeWithdrawn, nil
	case transitionConfirm:
		return OutcomeApplied, s.confirm(ctx, tx, order, now)
	case transitionRefuse:
		return OutcomeApplied, s.cancel(ctx, tx, order, paymentStatus, now, notify.PaymentRefused(order, paymentStatus))
	case transitionRefund:
		return OutcomeApplied, s.cancel(ctx, tx, order, paymentStatus, now,
			notify.OrderCancelled(order), notify.OrderCancelledForRestaurant(order))
	case transitionStale:
		s.logger.Warn().
			Str("order_id", order.ID.String()).
			Str("status", string(order.Status)).
			Str("target", string(target)).
			Msg("stale payment status ignored")
		return OutcomeStale, nil
	default:
		return OutcomeNoOp, nil
	}
}

func (s *paymentService) confirm(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) error {
	if err := s.orders.UpdateState(ctx, tx, order.ID, model.OrderStatusConfirmed, model.PaymentStatusApproved, now); err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	order.Status = model.OrderStatusConfirmed
	order.PaymentStatus = model.PaymentStatusApproved

	if _, err := s.transactions.CreateIfAbsent(ctx, tx, model.NewTransactionForOrder(order, now)); err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	if err := s.notifier.Notify(ctx, tx, notify.OrderConfirmed(order)); err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	if err := s.notifier.Notify(ctx, tx, notify.NewOrder(order)); err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	return nil
}

func (s *paymentService) cancel(
	ctx context.Context,
	tx pgx.Tx,
	order *model.Order,
	paymentStatus model.PaymentStatus,
	now time.Time,
	notices ...*model.Notification,
) error {
	if err := s.orders.UpdateState(ctx, tx, order.ID, model.OrderStatusCancelled, paymentStatus, now); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if err := s.inventory.Release(ctx, tx, order.OfferID, order.Quantity, now); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	order.Status = model.OrderStatusCancelled
	order.PaymentStatus = paymentStatus

	for _, n := range notices {
		if err := s.notifier.Notify(ctx, tx, n); err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
	}
	return nil
}
