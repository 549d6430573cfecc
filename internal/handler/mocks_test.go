package handler

import (
	"context"
	"net/http"

	"surplus-market/internal/gateway"
	"surplus-market/internal/middleware"
	"surplus-market/internal/model"
	"surplus-market/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// withCaller attaches an authenticated identity to r.
func withCaller(r *http.Request, id model.Identity) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), id))
}

// withParam sets a chi URL parameter on r.
func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// MockOfferService is a mock implementation of OfferService.
type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) CreateOffer(ctx context.Context, restaurantID uuid.UUID, spec model.OfferSpec) (*model.Offer, error) {
	args := m.Called(ctx, restaurantID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferService) GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferService) CancelOffer(ctx context.Context, restaurantID, offerID uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, restaurantID, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

// MockDiscoveryService is a mock implementation of DiscoveryService.
type MockDiscoveryService struct {
	mock.Mock
}

func (m *MockDiscoveryService) Search(ctx context.Context, filter model.OfferFilter) (model.PageResult[model.OfferListing], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(model.PageResult[model.OfferListing]), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateReservation(ctx context.Context, req model.ReservationRequest) (*model.Reservation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockOrderService) CancelByConsumer(ctx context.Context, consumerID, orderID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, consumerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, consumerID, orderID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, consumerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListConsumerOrders(ctx context.Context, consumerID uuid.UUID, status *model.OrderStatus, page model.Page) (model.PageResult[model.Order], error) {
	args := m.Called(ctx, consumerID, status, page)
	return args.Get(0).(model.PageResult[model.Order]), args.Error(1)
}

// MockPickupService is a mock implementation of PickupService.
type MockPickupService struct {
	mock.Mock
}

func (m *MockPickupService) Validate(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error) {
	args := m.Called(ctx, restaurantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockPickupService) Redeem(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error) {
	args := m.Called(ctx, restaurantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Ingest(ctx context.Context, n gateway.Notification) {
	m.Called(ctx, n)
}

func (m *MockPaymentService) HandleNotification(ctx context.Context, n gateway.Notification) (service.Outcome, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(service.Outcome), args.Error(1)
}

func (m *MockPaymentService) ApplyPaymentStatus(ctx context.Context, orderID uuid.UUID, paymentID, status string) (service.Outcome, error) {
	args := m.Called(ctx, orderID, paymentID, status)
	return args.Get(0).(service.Outcome), args.Error(1)
}

// MockNotificationService is a mock implementation of NotificationService.
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context, recipient model.Identity, unreadOnly bool, page model.Page) (*model.NotificationList, error) {
	args := m.Called(ctx, recipient, unreadOnly, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationList), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, recipient model.Identity, id uuid.UUID) error {
	return m.Called(ctx, recipient, id).Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, recipient model.Identity) (int64, error) {
	args := m.Called(ctx, recipient)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, recipient model.Identity, id uuid.UUID) error {
	return m.Called(ctx, recipient, id).Error(0)
}

// MockReviewService is a mock implementation of ReviewService.
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) CreateReview(ctx context.Context, consumerID uuid.UUID, req model.ReviewRequest) (*model.Review, error) {
	args := m.Called(ctx, consumerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewService) ListRestaurantReviews(ctx context.Context, restaurantID uuid.UUID, page model.Page) (*model.RestaurantReviews, error) {
	args := m.Called(ctx, restaurantID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RestaurantReviews), args.Error(1)
}

func (m *MockReviewService) ListConsumerReviews(ctx context.Context, consumerID uuid.UUID, page model.Page) (model.PageResult[model.ReviewView], error) {
	args := m.Called(ctx, consumerID, page)
	return args.Get(0).(model.PageResult[model.ReviewView]), args.Error(1)
}

// MockProfileService is a mock implementation of ProfileService.
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) ConsumerProfile(ctx context.Context, consumerID uuid.UUID) (*model.Consumer, error) {
	args := m.Called(ctx, consumerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consumer), args.Error(1)
}

func (m *MockProfileService) UpdateConsumerProfile(ctx context.Context, consumerID uuid.UUID, update model.ConsumerProfileUpdate) (*model.Consumer, error) {
	args := m.Called(ctx, consumerID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consumer), args.Error(1)
}

func (m *MockProfileService) RestaurantProfile(ctx context.Context, restaurantID uuid.UUID) (*model.Restaurant, error) {
	args := m.Called(ctx, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

func (m *MockProfileService) UpdateRestaurantProfile(ctx context.Context, restaurantID uuid.UUID, update model.RestaurantProfileUpdate) (*model.Restaurant, error) {
	args := m.Called(ctx, restaurantID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

// MockSalesService is a mock implementation of SalesService.
type MockSalesService struct {
	mock.Mock
}

func (m *MockSalesService) SalesHistory(ctx context.Context, restaurantID uuid.UUID, start, end string) (*model.SalesHistory, error) {
	args := m.Called(ctx, restaurantID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SalesHistory), args.Error(1)
}
