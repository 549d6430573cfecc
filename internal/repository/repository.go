package repository

import (
	"context"
	"time"

	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxBeginner starts database transactions.
type TxBeginner interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// OfferRepository defines the interface for offer data access operations.
type OfferRepository interface {
	TxBeginner

	// Create inserts a new offer.
	Create(ctx context.Context, offer *model.Offer) error

	// GetByID retrieves an offer by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)

	// GetByIDTx retrieves an offer through tx. Returns nil when absent.
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Offer, error)

	// GetForShare retrieves an offer through tx and share-locks its row, so a
	// concurrent Cancel waits for tx. Returns nil when absent.
	GetForShare(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Offer, error)

	// Reserve decrements available units in one conditional statement and
	// flips the offer to SOLD_OUT when it reaches zero. Returns nil when the
	// offer is not reservable.
	Reserve(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int, now time.Time) (*model.Offer, error)

	// Release returns units to the offer, reactivating a SOLD_OUT or EXPIRED
	// offer whose pickup window has not ended.
	Release(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int, now time.Time) (*model.Offer, error)

	// MarkExpired moves an ACTIVE offer whose window has ended to EXPIRED.
	// Reports whether a row changed.
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	// Cancel moves a non-cancelled offer to CANCELLED. Reports whether a row changed.
	Cancel(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (bool, error)

	// ListEndedActive returns IDs of ACTIVE offers whose window ended before now.
	ListEndedActive(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// Search returns one page of discoverable offers, newest first.
	Search(ctx context.Context, filter model.OfferFilter, now time.Time) ([]model.OfferListing, error)

	// Count returns the number of discoverable offers matching filter.
	Count(ctx context.Context, filter model.OfferFilter, now time.Time) (int, error)

	// SearchWithin returns every discoverable offer whose restaurant lies within bounds.
	SearchWithin(ctx context.Context, filter model.OfferFilter, bounds model.Bounds, now time.Time) ([]model.OfferListing, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	TxBeginner

	// Create inserts an order within tx. Reports false when the pickup code is taken.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error)

	// GetByID retrieves an order with its pickup window. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForUpdate locks and retrieves an order. Returns nil when absent.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// GetByCode retrieves a restaurant's order by pickup code. Returns nil when absent.
	GetByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error)

	// GetByCodeForUpdate locks and retrieves a restaurant's order by pickup code.
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID, code string) (*model.Order, error)

	// FindIDByPaymentID resolves an order from a gateway payment ID. Returns nil when absent.
	FindIDByPaymentID(ctx context.Context, paymentID string) (*uuid.UUID, error)

	// UpdateState writes status and payment status of a locked order.
	UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, payment model.PaymentStatus, now time.Time) error

	// TransitionIf moves an order to status only when it is currently in one of from.
	// Reports whether a row changed.
	TransitionIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, from []model.OrderStatus, to model.OrderStatus, now time.Time) (bool, error)

	// MarkCompleted stamps the pickup time and completes a locked order.
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) error

	// SetPaymentID records the gateway payment ID if none is stored yet.
	SetPaymentID(ctx context.Context, tx pgx.Tx, id uuid.UUID, paymentID string) error

	// SetQRCodeURL records where the pickup artifact is stored.
	SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error

	// ListByConsumer returns a page of a consumer's orders and the total count.
	ListByConsumer(ctx context.Context, consumerID uuid.UUID, status *model.OrderStatus, page model.Page) ([]model.Order, int, error)

	// ListActiveByOfferForUpdate locks CONFIRMED and READY_FOR_PICKUP orders of an offer.
	ListActiveByOfferForUpdate(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) ([]model.Order, error)

	// ListNoShowCandidates returns CONFIRMED and READY_FOR_PICKUP orders whose
	// window ended before now. Orders of cancelled offers are excluded.
	ListNoShowCandidates(ctx context.Context, now time.Time) ([]model.Order, error)

	// ListStartingBetween returns CONFIRMED orders whose window starts in [from, to].
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)

	// PromoteReady moves CONFIRMED orders whose window is open to READY_FOR_PICKUP.
	PromoteReady(ctx context.Context, now time.Time) (int64, error)
}

// ConsumerRepository defines the interface for consumer data access operations.
type ConsumerRepository interface {
	// Create inserts a new consumer.
	Create(ctx context.Context, consumer *model.Consumer) error

	// GetByID retrieves a consumer. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Consumer, error)

	// RecordFailedPickup increments the failed pickup counter in one statement
	// and sets blockedUntil when the new count reaches the limit.
	RecordFailedPickup(ctx context.Context, tx pgx.Tx, id uuid.UUID, limit int, blockUntil time.Time) (*model.Consumer, error)

	// ListBlockExpired returns IDs of consumers whose block ended at or before now.
	ListBlockExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// Unblock clears an expired block and resets the counter. Reports whether a row changed.
	Unblock(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	// AddCredit adds goodwill credit to a consumer balance.
	AddCredit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) error

	// UpdateProfile writes the non-nil fields of update. Returns nil when absent.
	UpdateProfile(ctx context.Context, id uuid.UUID, update model.ConsumerProfileUpdate) (*model.Consumer, error)
}

// RestaurantRepository defines the interface for restaurant data access operations.
type RestaurantRepository interface {
	// Create inserts a new restaurant.
	Create(ctx context.Context, restaurant *model.Restaurant) error

	// GetByID retrieves a restaurant. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error)

	// RecomputeRating refreshes the average and total from reviews.
	RecomputeRating(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.RatingSummary, error)

	// UpdateProfile writes the non-nil fields of update. Returns nil when absent.
	UpdateProfile(ctx context.Context, id uuid.UUID, update model.RestaurantProfileUpdate) (*model.Restaurant, error)
}

// TransactionRepository defines the interface for settlement record access.
type TransactionRepository interface {
	TxBeginner

	// CreateIfAbsent inserts the transaction unless the order already has one.
	// Reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, t *model.Transaction) (bool, error)

	// GetByOrderID retrieves an order's transaction. Returns nil when absent.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Transaction, error)

	// MarkProcessed advances a pending transaction to processed.
	MarkProcessed(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, now time.Time) (bool, error)

	// ListSettleable returns processed transactions processed before cutoff.
	ListSettleable(ctx context.Context, cutoff time.Time) ([]model.Transaction, error)

	// MarkPaid advances a processed transaction to paid.
	MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (bool, error)

	// DailySales aggregates a restaurant's transactions per local day in tz,
	// newest first. Transactions of cancelled orders are excluded.
	DailySales(ctx context.Context, restaurantID uuid.UUID, rng model.SalesRange, tz string) ([]model.DailySales, error)
}

// NotificationRepository defines the interface for notification data access.
type NotificationRepository interface {
	// Create inserts a notification within tx, or directly when tx is nil.
	Create(ctx context.Context, tx pgx.Tx, n *model.Notification) error

	// List returns a page of a recipient's notifications, newest first, and the total.
	List(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType, unreadOnly bool, page model.Page) ([]model.Notification, int, error)

	// CountUnread returns the number of unread notifications.
	CountUnread(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType) (int, error)

	// MarkRead marks one notification read. Reports whether it belongs to the recipient.
	MarkRead(ctx context.Context, recipientID uuid.UUID, id uuid.UUID) (bool, error)

	// MarkAllRead marks every notification of the recipient read.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType) (int64, error)

	// Delete removes one notification. Reports whether it belonged to the recipient.
	Delete(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType, id uuid.UUID) (bool, error)
}

// ReviewRepository defines the interface for review data access.
type ReviewRepository interface {
	TxBeginner

	// Create inserts a review within tx. Reports false when the order was already reviewed.
	Create(ctx context.Context, tx pgx.Tx, review *model.Review) (bool, error)

	// ListByRestaurant returns a page of a restaurant's reviews with consumer
	// names, newest first, and the total.
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, page model.Page) ([]model.ReviewView, int, error)

	// ListByConsumer returns a page of a consumer's reviews with restaurant
	// names, newest first, and the total.
	ListByConsumer(ctx context.Context, consumerID uuid.UUID, page model.Page) ([]model.ReviewView, int, error)
}
