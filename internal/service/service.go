package service

import (
	"context"
	"time"

	"surplus-market/internal/gateway"
	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OfferService defines operations for the offer inventory.
type OfferService interface {
	// CreateOffer publishes a new offer for an approved restaurant.
	CreateOffer(ctx context.Context, restaurantID uuid.UUID, spec model.OfferSpec) (*model.Offer, error)

	// GetOffer retrieves an offer by ID.
	GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error)

	// CancelOffer withdraws an offer and cancels and refunds its confirmed orders.
	CancelOffer(ctx context.Context, restaurantID, offerID uuid.UUID) (*model.Offer, error)
}

// OrderService defines the order lifecycle operations driven by consumers.
type OrderService interface {
	// CreateReservation reserves units of an offer and starts payment.
	CreateReservation(ctx context.Context, req model.ReservationRequest) (*model.Reservation, error)

	// CancelByConsumer cancels a confirmed order outside the lockout window.
	CancelByConsumer(ctx context.Context, consumerID, orderID uuid.UUID) (*model.Order, error)

	// GetOrder retrieves one of the consumer's orders.
	GetOrder(ctx context.Context, consumerID, orderID uuid.UUID) (*model.Order, error)

	// ListConsumerOrders returns a page of the consumer's orders.
	ListConsumerOrders(ctx context.Context, consumerID uuid.UUID, status *model.OrderStatus, page model.Page) (model.PageResult[model.Order], error)
}

// OrderCanceller cancels orders on behalf of a withdrawn offer.
type OrderCanceller interface {
	// CancelForOffer cancels a locked order within tx, returns its units and
	// credits the consumer.
	CancelForOffer(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) (decimal.Decimal, error)

	// Refund asks the gateway to refund a cancelled order. Failures are logged.
	Refund(ctx context.Context, order *model.Order)
}

// PaymentService reconciles gateway notifications with order state.
type PaymentService interface {
	// Ingest processes a notification and schedules internal retries on transient
	// failure. It never fails.
	Ingest(ctx context.Context, n gateway.Notification)

	// HandleNotification processes one notification. Only transient gateway or
	// store failures are returned.
	HandleNotification(ctx context.Context, n gateway.Notification) (Outcome, error)

	// ApplyPaymentStatus moves an order forward according to a gateway status.
	ApplyPaymentStatus(ctx context.Context, orderID uuid.UUID, paymentID, status string) (Outcome, error)
}

// PaymentInitiator starts the gateway payment for a new order.
type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, order *model.Order, payer *model.Consumer) (*model.PaymentSession, error)
}

// Refunder refunds gateway payments.
type Refunder interface {
	RefundPayment(ctx context.Context, paymentID string) error
}

// PickupService verifies and redeems pickup codes.
type PickupService interface {
	// Validate checks that a code can be redeemed now without redeeming it.
	Validate(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error)

	// Redeem completes the order for a code. Redeeming a completed order is a no-op.
	Redeem(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error)
}

// DiscoveryService searches active offers.
type DiscoveryService interface {
	Search(ctx context.Context, filter model.OfferFilter) (model.PageResult[model.OfferListing], error)
}

// PenaltyService tracks missed pickups and blocks.
type PenaltyService interface {
	// CheckEligibility returns the consumer if they may reserve at now.
	CheckEligibility(ctx context.Context, consumerID uuid.UUID, now time.Time) (*model.Consumer, error)

	// RecordNoShow counts a missed pickup within tx and blocks at the limit.
	RecordNoShow(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) (*model.Consumer, error)

	// UnblockExpired clears blocks that ended at or before now.
	UnblockExpired(ctx context.Context, now time.Time) (int, error)
}

// NotificationService lists and acknowledges notifications.
type NotificationService interface {
	List(ctx context.Context, recipient model.Identity, unreadOnly bool, page model.Page) (*model.NotificationList, error)
	MarkRead(ctx context.Context, recipient model.Identity, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipient model.Identity) (int64, error)
	Delete(ctx context.Context, recipient model.Identity, id uuid.UUID) error
}

// ReviewService records and lists consumer reviews.
type ReviewService interface {
	CreateReview(ctx context.Context, consumerID uuid.UUID, req model.ReviewRequest) (*model.Review, error)

	// ListRestaurantReviews returns a page of a restaurant's reviews and its rating.
	ListRestaurantReviews(ctx context.Context, restaurantID uuid.UUID, page model.Page) (*model.RestaurantReviews, error)

	// ListConsumerReviews returns a page of the reviews a consumer wrote.
	ListConsumerReviews(ctx context.Context, consumerID uuid.UUID, page model.Page) (model.PageResult[model.ReviewView], error)
}

// ProfileService reads and edits account profiles.
type ProfileService interface {
	ConsumerProfile(ctx context.Context, consumerID uuid.UUID) (*model.Consumer, error)
	UpdateConsumerProfile(ctx context.Context, consumerID uuid.UUID, update model.ConsumerProfileUpdate) (*model.Consumer, error)
	RestaurantProfile(ctx context.Context, restaurantID uuid.UUID) (*model.Restaurant, error)
	UpdateRestaurantProfile(ctx context.Context, restaurantID uuid.UUID, update model.RestaurantProfileUpdate) (*model.Restaurant, error)
}

// SalesService reports restaurant revenue.
type SalesService interface {
	// SalesHistory aggregates settled orders per local day between the
	// optional start and end dates (YYYY-MM-DD, both inclusive).
	SalesHistory(ctx context.Context, restaurantID uuid.UUID, start, end string) (*model.SalesHistory, error)
}

// Notifier records domain notifications.
type Notifier interface {
	// Notify writes n within tx, or directly when tx is nil.
	Notify(ctx context.Context, tx pgx.Tx, n *model.Notification) error

	// NotifyOnce writes n unless key was used within ttl.
	NotifyOnce(ctx context.Context, key string, ttl time.Duration, n *model.Notification) (bool, error)
}

// Deferrer runs a function once after a delay.
type Deferrer interface {
	After(delay time.Duration, name string, fn func(ctx context.Context)) error
}

// ArtifactPublisher stores the scannable pickup artifact of an order.
type ArtifactPublisher interface {
	Publish(ctx context.Context, orderID uuid.UUID, code string) (string, error)
}

// rollbackOnError rolls tx back when the operation returned an error.
func rollbackOnError(ctx context.Context, tx pgx.Tx, errp *error, logger zerolog.Logger) {
	if *errp == nil {
		return
	}
	if rbErr := tx.Rollback(ctx); rbErr != nil {
		logger.Error().Err(rbErr).Msg("failed to rollback transaction")
	}
}
