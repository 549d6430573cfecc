package service

import (
	"context"
	"time"

	"surplus-market/internal/gateway"
	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func beginTx(args mock.Arguments) (pgx.Tx, error) {
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockOfferRepository is a mock implementation of OfferRepository.
type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(m.Called(ctx))
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *model.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) GetForShare(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) Reserve(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int, now time.Time) (*model.Offer, error) {
	args := m.Called(ctx, tx, id, qty, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) Release(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int, now time.Time) (*model.Offer, error) {
	args := m.Called(ctx, tx, id, qty, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockOfferRepository) Cancel(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockOfferRepository) ListEndedActive(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockOfferRepository) Search(ctx context.Context, filter model.OfferFilter, now time.Time) ([]model.OfferListing, error) {
	args := m.Called(ctx, filter, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OfferListing), args.Error(1)
}

func (m *MockOfferRepository) Count(ctx context.Context, filter model.OfferFilter, now time.Time) (int, error) {
	args := m.Called(ctx, filter, now)
	return args.Int(0), args.Error(1)
}

func (m *MockOfferRepository) SearchWithin(ctx context.Context, filter model.OfferFilter, bounds model.Bounds, now time.Time) ([]model.OfferListing, error) {
	args := m.Called(ctx, filter, bounds, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OfferListing), args.Error(1)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(m.Called(ctx))
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error) {
	args := m.Called(ctx, tx, order)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error) {
	args := m.Called(ctx, restaurantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID, code string) (*model.Order, error) {
	args := m.Called(ctx, tx, restaurantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindIDByPaymentID(ctx context.Context, paymentID string) (*uuid.UUID, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uuid.UUID), args.Error(1)
}

func (m *MockOrderRepository) UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, payment model.PaymentStatus, now time.Time) error {
	args := m.Called(ctx, tx, id, status, payment, now)
	return args.Error(0)
}

func (m *MockOrderRepository) TransitionIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, from []model.OrderStatus, to model.OrderStatus, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, from, to, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) error {
	args := m.Called(ctx, tx, id, now)
	return args.Error(0)
}

func (m *MockOrderRepository) SetPaymentID(ctx context.Context, tx pgx.Tx, id uuid.UUID, paymentID string) error {
	args := m.Called(ctx, tx, id, paymentID)
	return args.Error(0)
}

func (m *MockOrderRepository) SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

func (m *MockOrderRepository) ListByConsumer(ctx context.Context, consumerID uuid.UUID, status *model.OrderStatus, page model.Page) ([]model.Order, int, error) {
	args := m.Called(ctx, consumerID, status, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderRepository) ListActiveByOfferForUpdate(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) ([]model.Order, error) {
	args := m.Called(ctx, tx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListNoShowCandidates(ctx context.Context, now time.Time) ([]model.Order, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) PromoteReady(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockConsumerRepository is a mock implementation of ConsumerRepository.
type MockConsumerRepository struct {
	mock.Mock
}

func (m *MockConsumerRepository) Create(ctx context.Context, consumer *model.Consumer) error {
	args := m.Called(ctx, consumer)
	return args.Error(0)
}

func (m *MockConsumerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Consumer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consumer), args.Error(1)
}

func (m *MockConsumerRepository) RecordFailedPickup(ctx context.Context, tx pgx.Tx, id uuid.UUID, limit int, blockUntil time.Time) (*model.Consumer, error) {
	args := m.Called(ctx, tx, id, limit, blockUntil)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consumer), args.Error(1)
}

func (m *MockConsumerRepository) ListBlockExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockConsumerRepository) Unblock(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockConsumerRepository) AddCredit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) error {
	args := m.Called(ctx, tx, id, amount)
	return args.Error(0)
}

func (m *MockConsumerRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ConsumerProfileUpdate) (*model.Consumer, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consumer), args.Error(1)
}

// MockRestaurantRepository is a mock implementation of RestaurantRepository.
type MockRestaurantRepository struct {
	mock.Mock
}

func (m *MockRestaurantRepository) Create(ctx context.Context, restaurant *model.Restaurant) error {
	args := m.Called(ctx, restaurant)
	return args.Error(0)
}

func (m *MockRestaurantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

func (m *MockRestaurantRepository) RecomputeRating(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.RatingSummary, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RatingSummary), args.Error(1)
}

func (m *MockRestaurantRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update model.RestaurantProfileUpdate) (*model.Restaurant, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(m.Called(ctx))
}

func (m *MockTransactionRepository) CreateIfAbsent(ctx context.Context, tx pgx.Tx, t *model.Transaction) (bool, error) {
	args := m.Called(ctx, tx, t)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkProcessed(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, orderID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) ListSettleable(ctx context.Context, cutoff time.Time) ([]model.Transaction, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) DailySales(ctx context.Context, restaurantID uuid.UUID, rng model.SalesRange, tz string) ([]model.DailySales, error) {
	args := m.Called(ctx, restaurantID, rng, tz)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailySales), args.Error(1)
}

// MockNotificationRepository is a mock implementation of NotificationRepository.
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, tx pgx.Tx, n *model.Notification) error {
	args := m.Called(ctx, tx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) List(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType, unreadOnly bool, page model.Page) ([]model.Notification, int, error) {
	args := m.Called(ctx, recipientID, recipientType, unreadOnly, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Notification), args.Int(1), args.Error(2)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType) (int, error) {
	args := m.Called(ctx, recipientID, recipientType)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, recipientID uuid.UUID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, recipientID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType) (int64, error) {
	args := m.Called(ctx, recipientID, recipientType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, recipientID, recipientType, id)
	return args.Bool(0), args.Error(1)
}

// MockReviewRepository is a mock implementation of ReviewRepository.
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(m.Called(ctx))
}

func (m *MockReviewRepository) Create(ctx context.Context, tx pgx.Tx, review *model.Review) (bool, error) {
	args := m.Called(ctx, tx, review)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, page model.Page) ([]model.ReviewView, int, error) {
	args := m.Called(ctx, restaurantID, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.ReviewView), args.Int(1), args.Error(2)
}

func (m *MockReviewRepository) ListByConsumer(ctx context.Context, consumerID uuid.UUID, page model.Page) ([]model.ReviewView, int, error) {
	args := m.Called(ctx, consumerID, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.ReviewView), args.Int(1), args.Error(2)
}

// MockNotifier records notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, tx pgx.Tx, n *model.Notification) error {
	args := m.Called(ctx, tx, n)
	return args.Error(0)
}

func (m *MockNotifier) NotifyOnce(ctx context.Context, key string, ttl time.Duration, n *model.Notification) (bool, error) {
	args := m.Called(ctx, key, ttl, n)
	return args.Bool(0), args.Error(1)
}

// MockDeferrer captures deferred functions.
type MockDeferrer struct {
	mock.Mock
}

func (m *MockDeferrer) After(delay time.Duration, name string, fn func(ctx context.Context)) error {
	args := m.Called(delay, name, fn)
	return args.Error(0)
}

// MockPublisher is a mock implementation of ArtifactPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, orderID uuid.UUID, code string) (string, error) {
	args := m.Called(ctx, orderID, code)
	return args.String(0), args.Error(1)
}

// MockPaymentInitiator is a mock implementation of PaymentInitiator.
type MockPaymentInitiator struct {
	mock.Mock
}

func (m *MockPaymentInitiator) InitiatePayment(ctx context.Context, order *model.Order, payer *model.Consumer) (*model.PaymentSession, error) {
	args := m.Called(ctx, order, payer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentSession), args.Error(1)
}

// MockRefunder is a mock implementation of Refunder.
type MockRefunder struct {
	mock.Mock
}

func (m *MockRefunder) RefundPayment(ctx context.Context, paymentID string) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

// MockGatewayClient is a mock implementation of gateway.Client.
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Payment), args.Error(1)
}

func (m *MockGatewayClient) CreatePayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.Checkout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Checkout), args.Error(1)
}

func (m *MockGatewayClient) RefundPayment(ctx context.Context, paymentID string) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

// MockPenaltyService is a mock implementation of PenaltyService.
type MockPenaltyService struct {
	mock.Mock
}

func (m *MockPenaltyService) CheckEligibility(ctx context.Context, consumerID uuid.UUID, now time.Time) (*model.Consumer, error) {
	args := m.Called(ctx, consumerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consumer), args.Error(1)
}

func (m *MockPenaltyService) RecordNoShow(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) (*model.Consumer, error) {
	args := m.Called(ctx, tx, order, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consumer), args.Error(1)
}

func (m *MockPenaltyService) UnblockExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

// MockOrderCanceller is a mock implementation of OrderCanceller.
type MockOrderCanceller struct {
	mock.Mock
}

func (m *MockOrderCanceller) CancelForOffer(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, order, now)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockOrderCanceller) Refund(ctx context.Context, order *model.Order) {
	m.Called(ctx, order)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }
