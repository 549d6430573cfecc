package service

import (
	"context"
	"errors"
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

// maxCodeAttempts bounds pickup code regeneration on collision.
const maxCodeAttempts = 5

// orderService implements OrderService and OrderCanceller.
type orderService struct {
	*orderCanceller

	orders    repository.OrderRepository
	inventory *Inventory
	penalties PenaltyService
	payments  PaymentInitiator
	publisher ArtifactPublisher
	notifier  Notifier
	clock     clockwork.Clock
	logger    zerolog.Logger
}

// OrderDeps groups the collaborators of the order service.
type OrderDeps struct {
	Orders    repository.OrderRepository
	Consumers repository.ConsumerRepository
	Inventory *Inventory
	Penalties PenaltyService
	Payments  PaymentInitiator
	Refunder  Refunder
	Publisher ArtifactPublisher
	Notifier  Notifier
}

// OrderManager is the order state machine as seen by consumers and by offer
// cancellation.
type OrderManager interface {
	OrderService
	OrderCanceller
}

// NewOrderService creates a new order service.
func NewOrderService(deps OrderDeps, clock clockwork.Clock, logger zerolog.Logger) OrderManager {
	return &orderService{
		orderCanceller: newOrderCanceller(deps.Orders, deps.Consumers, deps.Inventory, deps.Notifier, deps.Refunder, logger),
		orders:         deps.Orders,
		inventory:      deps.Inventory,
		penalties:      deps.Penalties,
		payments:       deps.Payments,
		publisher:      deps.Publisher,
		notifier:       deps.Notifier,
		clock:          clock,
		logger:         logger.With().Str("service", "order").Logger(),
	}
}

// CreateReservation reserves units and persists a PENDING_PAYMENT order. The
// pickup artifact and the gateway payment are best effort after commit.
func (s *orderService) CreateReservation(ctx context.Context, req model.ReservationRequest) (*model.Reservation, error) {
	if !req.PaymentMethod.Valid() {
		return nil, model.ErrInvalidPaymentMethod
	}
	if req.Quantity < model.MinOfferQuantity || req.Quantity > model.MaxOfferQuantity {
		return nil, model.ErrInvalidQuantity
	}

	now := s.clock.Now()
	consumer, err := s.penalties.CheckEligibility(ctx, req.ConsumerID, now)
	if err != nil {
		return nil, err
	}

	order, err := s.reserve(ctx, req, now)
	if err != nil {
		if errors.Is(err, model.ErrOfferExpired) {
			s.inventory.MarkExpired(ctx, req.OfferID, now)
		}
		s.logger.Warn().
			Err(err).
			Str("consumer_id", req.ConsumerID.String()).
			Str("offer_id", req.OfferID.String()).
			Msg("reservation failed")
		return nil, err
	}

	s.publishArtifact(ctx, order)

	reservation := &model.Reservation{Order: order}
	session, err := s.payments.InitiatePayment(ctx, order, consumer)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("payment not started, order stays pending")
	} else {
		reservation.Payment = session
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("offer_id", order.OfferID.String()).
		Int("quantity", order.Quantity).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order reserved")
	return reservation, nil
}

// reserve decrements inventory and inserts the order in one transaction.
func (s *orderService) reserve(ctx context.Context, req model.ReservationRequest, now time.Time) (_ *model.Order, err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	offer, err := s.inventory.Reserve(ctx, tx, req.OfferID, req.Quantity, now)
	if err != nil {
		return nil, err
	}

	price := priceOrder(offer, req.Quantity)
	order := &model.Order{
		ID:               uuid.New(),
		ConsumerID:       req.ConsumerID,
		OfferID:          offer.ID,
		RestaurantID:     offer.RestaurantID,
		Quantity:         req.Quantity,
		OriginalPrice:    price.original,
		PromotionalPrice: price.promotional,
		TotalAmount:      price.total,
		PlatformFee:      price.platformFee,
		RestaurantAmount: price.restaurantAmount,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    model.PaymentStatusPending,
		Status:           model.OrderStatusPendingPayment,
		CreatedAt:        now,
		UpdatedAt:        now,
		PickupStartTime:  offer.PickupStartTime,
		PickupEndTime:    offer.PickupEndTime,
	}

	created := false
	for attempt := 1; attempt <= maxCodeAttempts && !created; attempt++ {
		order.PickupCode, err = pickup.NewCode()
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		created, err = s.orders.Create(ctx, tx, order)
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		if !created {
			s.logger.Warn().Int("attempt", attempt).Msg("pickup code collision")
		}
	}
	if !created {
		return nil, model.ErrPickupCodeExhausted
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (s *orderService) publishArtifact(ctx context.Context, order *model.Order) {
	url, err := s.publisher.Publish(ctx, order.ID, order.PickupCode)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to publish pickup artifact")
		return
	}
	if err := s.orders.SetQRCodeURL(ctx, order.ID, url); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to store pickup artifact url")
		return
	}
	order.QRCodeURL = &url
}

// CancelByConsumer cancels a confirmed order up to CancellationLockout before pickup.
func (s *orderService) CancelByConsumer(ctx context.Context, consumerID, orderID uuid.UUID) (_ *model.Order, err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	order, err := s.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.ConsumerID != consumerID {
		return nil, model.ErrNotOrderOwner
	}
	if order.Status != model.OrderStatusConfirmed {
		return nil, model.NewInvalidOrderStateError("cancel", order.Status)
	}

	now := s.clock.Now()
	if now.After(order.PickupStartTime.Add(-model.CancellationLockout)) {
		return nil, model.ErrCancellationWindowClosed
	}

	if err = s.cancel(ctx, tx, order, now); err != nil {
		return nil, err
	}
	if err = s.notifier.Notify(ctx, tx, notify.OrderCancelled(order)); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if err = s.notifier.Notify(ctx, tx, notify.OrderCancelledForRestaurant(order)); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	s.logger.Info().Str("order_id", orderID.String()).Msg("order cancelled by consumer")
	s.Refund(ctx, order)
	return order, nil
}

// GetOrder retrieves one of the consumer's orders.
func (s *orderService) GetOrder(ctx context.Context, consumerID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.ConsumerID != consumerID {
		return nil, model.ErrNotOrderOwner
	}
	return order, nil
}

// ListConsumerOrders returns a page of the consumer's orders, newest first.
func (s *orderService) ListConsumerOrders(ctx context.Context, consumerID uuid.UUID, status *model.OrderStatus, page model.Page) (model.PageResult[model.Order], error) {
	page = page.Normalize()
	orders, total, err := s.orders.ListByConsumer(ctx, consumerID, status, page)
	if err != nil {
		return model.PageResult[model.Order]{}, fmt.Errorf("failed to list orders: %w", err)
	}
	return model.NewPageResult(orders, total, page), nil
}
