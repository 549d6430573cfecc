package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"surplus-market/internal/gateway"
	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type paymentMocks struct {
	offers       *MockOfferRepository
	orders       *MockOrderRepository
	transactions *MockTransactionRepository
	consumers    *MockConsumerRepository
	notifier     *MockNotifier
	client       *MockGatewayClient
	deferrer     *MockDeferrer
	tx           *MockTx
}

func newPaymentService(t *testing.T) (PaymentProcessor, *paymentMocks) {
	t.Helper()
	m := &paymentMocks{
		offers:       new(MockOfferRepository),
		orders:       new(MockOrderRepository),
		transactions: new(MockTransactionRepository),
		consumers:    new(MockConsumerRepository),
		notifier:     new(MockNotifier),
		client:       new(MockGatewayClient),
		deferrer:     new(MockDeferrer),
		tx:           new(MockTx),
	}
	logger := zerolog.Nop()
	inventory := NewInventory(m.offers, logger)
	service := NewPaymentService(
		m.orders,
		m.transactions,
		inventory,
		newOrderCanceller(m.orders, m.consumers, inventory, m.notifier, m.client, logger),
		m.notifier,
		m.client,
		m.deferrer,
		RetryPolicy{Delay: time.Minute, Attempts: 3},
		clockwork.NewFakeClockAt(testNow),
		logger,
	)
	return service, m
}

func pendingOrder() *model.Order {
	return &model.Order{
		ID:               uuid.New(),
		ConsumerID:       uuid.New(),
		OfferID:          uuid.New(),
		RestaurantID:     uuid.New(),
		Quantity:         2,
		TotalAmount:      decimal.RequireFromString("45.00"),
		PlatformFee:      decimal.RequireFromString("6.75"),
		RestaurantAmount: decimal.RequireFromString("38.25"),
		PaymentMethod:    model.PaymentMethodPix,
		PaymentStatus:    model.PaymentStatusPending,
		Status:           model.OrderStatusPendingPayment,
		PickupCode:       "QWERTY1234",
	}
}

func TestDecideTransition(t *testing.T) {
	tests := []struct {
		current model.OrderStatus
		status  string
		want    transition
	}{
		{model.OrderStatusPendingPayment, gateway.StatusApproved, transitionConfirm},
		{model.OrderStatusPendingPayment, gateway.StatusPending, transitionNone},
		{model.OrderStatusPendingPayment, gateway.StatusRejected, transitionRefuse},
		{model.OrderStatusPendingPayment, gateway.StatusCancelled, transitionRefuse},
		{model.OrderStatusPendingPayment, "in_process", transitionNone},
		{model.OrderStatusConfirmed, gateway.StatusApproved, transitionNone},
		{model.OrderStatusConfirmed, gateway.StatusPending, transitionStale},
		{model.OrderStatusConfirmed, gateway.StatusRejected, transitionStale},
		{model.OrderStatusConfirmed, gateway.StatusRefunded, transitionRefund},
		{model.OrderStatusReadyForPickup, gateway.StatusApproved, transitionNone},
		{model.OrderStatusReadyForPickup, gateway.StatusCancelled, transitionRefund},
		{model.OrderStatusCompleted, gateway.StatusApproved, transitionStale},
		{model.OrderStatusCompleted, gateway.StatusRefunded, transitionStale},
		{model.OrderStatusCancelled, gateway.StatusRejected, transitionNone},
		{model.OrderStatusCancelled, gateway.StatusApproved, transitionStale},
		{model.OrderStatusNoShow, gateway.StatusPending, transitionStale},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s+%s", tt.current, tt.status), func(t *testing.T) {
			payment, target := gateway.MapStatus(tt.status)
			assert.Equal(t, tt.want, decideTransition(tt.current, target, payment))
		})
	}
}

func TestPaymentService_ApplyPaymentStatus_ConfirmsOnce(t *testing.T) {
	ctx := context.Background()
	service, m := newPaymentService(t)
	order := pendingOrder()

	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("GetForUpdate", ctx, m.tx, order.ID).Return(order, nil)
	m.orders.On("SetPaymentID", ctx, m.tx, order.ID, "555").Return(nil).Once()
	m.offers.On("GetForShare", ctx, m.tx, order.OfferID).Return(&model.Offer{ID: order.OfferID, Status: model.OfferStatusActive}, nil)
	m.orders.On("UpdateState", ctx, m.tx, order.ID, model.OrderStatusConfirmed, model.PaymentStatusApproved, testNow).Return(nil).Once()
	m.transactions.On("CreateIfAbsent", ctx, m.tx, mock.MatchedBy(func(tr *model.Transaction) bool {
		return tr.OrderID == order.ID && tr.Status == model.TransactionStatusPending &&
			tr.RestaurantAmount.Equal(order.RestaurantAmount)
	})).Return(true, nil).Once()
	m.notifier.On("Notify", ctx, m.tx, mock.MatchedBy(func(n *model.Notification) bool {
		return n.Type == model.NotificationOrderConfirmed && n.RecipientID == order.ConsumerID
	})).Return(nil).Once()
	m.notifier.On("Notify", ctx, m.tx, mock.MatchedBy(func(n *model.Notification) bool {
		return n.Type == model.NotificationNewOrder && n.RecipientID == order.RestaurantID
	})).Return(nil).Once()
	m.tx.On("Commit", ctx).Return(nil)

	outcome, err := service.ApplyPaymentStatus(ctx, order.ID, "555", gateway.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)

	// The replayed notification sees the confirmed row and changes nothing.
	outcome, err = service.ApplyPaymentStatus(ctx, order.ID, "555", gateway.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, outcome)

	// An older pending status arriving late does not regress the order.
	outcome, err = service.ApplyPaymentStatus(ctx, order.ID, "555", gateway.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, outcome)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)

	m.orders.AssertNumberOfCalls(t, "UpdateState", 1)
	m.transactions.AssertNumberOfCalls(t, "CreateIfAbsent", 1)
	m.notifier.AssertNumberOfCalls(t, "Notify", 2)
	m.tx.AssertNumberOfCalls(t, "Commit", 3)
}

func TestPaymentService_ApplyPaymentStatus_WithdrawnOfferRefunds(t *testing.T) {
	ctx := context.Background()
	service, m := newPaymentService(t)
	order := pendingOrder()

	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("GetForUpdate", ctx, m.tx, order.ID).Return(order, nil)
	m.orders.On("SetPaymentID", ctx, m.tx, order.ID, "556").Return(nil)
	m.offers.On("GetForShare", ctx, m.tx, order.OfferID).
		Return(&model.Offer{ID: order.OfferID, Status: model.OfferStatusCancelled}, nil)
	m.orders.On("UpdateState", ctx, m.tx, order.ID, model.OrderStatusCancelled, model.PaymentStatusRefunded, testNow).Return(nil)
	m.offers.On("Release", ctx, m.tx, order.OfferID, 2, testNow).
		Return(&model.Offer{ID: order.OfferID, Status: model.OfferStatusCancelled}, nil)
	m.consumers.On("AddCredit", ctx, m.tx, order.ConsumerID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString("4.50"))
	})).Return(nil)
	m.notifier.On("Notify", ctx, m.tx, mock.MatchedBy(func(n *model.Notification) bool {
		return n.Type == model.NotificationOfferCancelled && n.RecipientID == order.ConsumerID
	})).Return(nil).Once()
	m.tx.On("Commit", ctx).Return(nil)
	m.client.On("RefundPayment", ctx, "556").Return(nil).Once()

	outcome, err := service.ApplyPaymentStatus(ctx, order.ID, "556", gateway.StatusApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeWithdrawn, outcome)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, model.PaymentStatusRefunded, order.PaymentStatus)
	m.orders.AssertNotCalled(t, "UpdateState", ctx, m.tx, order.ID, model.OrderStatusConfirmed, model.PaymentStatusApproved, testNow)
	m.transactions.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything, mock.Anything)
	m.consumers.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
	m.client.AssertExpectations(t)
}

func TestPaymentService_ApplyPaymentStatus_OfferLookupFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	service, m := newPaymentService(t)
	order := pendingOrder()
	paymentID := "557"
	order.PaymentID = &paymentID

	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("GetForUpdate", ctx, m.tx, order.ID).Return(order, nil)
	m.offers.On("GetForShare", ctx, m.tx, order.OfferID).Return(nil, assert.AnError)
	m.tx.On("Rollback", ctx).Return(nil).Once()

	_, err := service.ApplyPaymentStatus(ctx, order.ID, paymentID, gateway.StatusApproved)

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, model.OrderStatusPendingPayment, order.Status)
	m.orders.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.tx.AssertNotCalled(t, "Commit", ctx)
	m.tx.AssertExpectations(t)
}

func TestPaymentService_ApplyPaymentStatus_RejectedReleasesUnits(t *testing.T) {
	ctx := context.Background()
	service, m := newPaymentService(t)
	order := pendingOrder()
	paymentID := "777"
	order.PaymentID = &paymentID

	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("GetForUpdate", ctx, m.tx, order.ID).Return(order, nil)
	m.orders.On("UpdateState", ctx, m.tx, order.ID, model.OrderStatusCancelled, model.PaymentStatusRefused, testNow).Return(nil)
	m.offers.On("Release", ctx, m.tx, order.OfferID, 2, testNow).Return(&model.Offer{ID: order.OfferID}, nil)
	m.notifier.On("Notify", ctx, m.tx, mock.MatchedBy(func(n *model.Notification) bool {
		return n.Type == model.NotificationPaymentRefused
	})).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)

	outcome, err := service.ApplyPaymentStatus(ctx, order.ID, paymentID, gateway.StatusRejected)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, model.PaymentStatusRefused, order.PaymentStatus)
	m.orders.AssertNotCalled(t, "SetPaymentID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.offers.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
}

func TestPaymentService_ApplyPaymentStatus_RefundAfterConfirm(t *testing.T) {
	ctx := context.Background()
	service, m := newPaymentService(t)
	order := pendingOrder()
	paymentID := "888"
	order.PaymentID = &paymentID
	order.Status = model.OrderStatusConfirmed
	order.PaymentStatus = model.PaymentStatusApproved

	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("GetForUpdate", ctx, m.tx, order.ID).Return(order, nil)
	m.orders.On("UpdateState", ctx, m.tx, order.ID, model.OrderStatusCancelled, model.PaymentStatusRefunded, testNow).Return(nil)
	m.offers.On("Release", ctx, m.tx, order.OfferID, 2, testNow).Return(&model.Offer{ID: order.OfferID}, nil)
	m.notifier.On("Notify", ctx, m.tx, mock.AnythingOfType("*model.Notification")).Return(nil).Twice()
	m.tx.On("Commit", ctx).Return(nil)

	outcome, err := service.ApplyPaymentStatus(ctx, order.ID, paymentID, gateway.StatusRefunded)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	m.notifier.AssertExpectations(t)
}

func TestPaymentService_ApplyPaymentStatus_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	service, m := newPaymentService(t)
	id := uuid.New()

	m.orders.On("BeginTx", ctx).Return(m.tx, nil)
	m.orders.On("GetForUpdate", ctx, m.tx, id).Return(nil, nil)
	m.tx.On("Commit", ctx).Return(nil)

	outcome, err := service.ApplyPaymentStatus(ctx, id, "1", gateway.StatusApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownOrder, outcome)
}

func TestPaymentService_HandleNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("Unrecognized notifications are ignored", func(t *testing.T) {
		service, m := newPaymentService(t)

		outcome, err := service.HandleNotification(ctx, gateway.UnrecognizedNotification{Type: "merchant_order"})

		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, outcome)
		m.client.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
	})

	t.Run("Payment unknown to gateway", func(t *testing.T) {
		service, m := newPaymentService(t)
		m.client.On("GetPayment", ctx, "404").Return(nil, fmt.Errorf("lookup: %w", gateway.ErrPaymentNotFound))

		outcome, err := service.HandleNotification(ctx, gateway.PaymentNotification{PaymentID: "404"})

		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, outcome)
	})

	t.Run("Gateway unavailable is transient", func(t *testing.T) {
		service, m := newPaymentService(t)
		m.client.On("GetPayment", ctx, "500").Return(nil, gateway.ErrUnavailable)

		_, err := service.HandleNotification(ctx, gateway.PaymentNotification{PaymentID: "500"})

		require.ErrorIs(t, err, gateway.ErrUnavailable)
	})

	t.Run("Reference not an order falls back to payment id", func(t *testing.T) {
		service, m := newPaymentService(t)
		m.client.On("GetPayment", ctx, "42").Return(&gateway.Payment{ID: "42", Status: gateway.StatusApproved, OrderID: "legacy-ref"}, nil)
		m.orders.On("FindIDByPaymentID", ctx, "42").Return(nil, nil)

		outcome, err := service.HandleNotification(ctx, gateway.PaymentNotification{PaymentID: "42"})

		require.NoError(t, err)
		assert.Equal(t, OutcomeUnknownOrder, outcome)
	})

	t.Run("Approved payment confirms the referenced order", func(t *testing.T) {
		service, m := newPaymentService(t)
		order := pendingOrder()

		m.client.On("GetPayment", ctx, "99").Return(&gateway.Payment{ID: "99", Status: gateway.StatusApproved, OrderID: order.ID.String()}, nil)
		m.orders.On("BeginTx", ctx).Return(m.tx, nil)
		m.orders.On("GetForUpdate", ctx, m.tx, order.ID).Return(order, nil)
		m.orders.On("SetPaymentID", ctx, m.tx, order.ID, "99").Return(nil)
		m.offers.On("GetForShare", ctx, m.tx, order.OfferID).Return(&model.Offer{ID: order.OfferID, Status: model.OfferStatusActive}, nil)
		m.orders.On("UpdateState", ctx, m.tx, order.ID, model.OrderStatusConfirmed, model.PaymentStatusApproved, testNow).Return(nil)
		m.transactions.On("CreateIfAbsent", ctx, m.tx, mock.AnythingOfType("*model.Transaction")).Return(true, nil)
		m.notifier.On("Notify", ctx, m.tx, mock.AnythingOfType("*model.Notification")).Return(nil).Twice()
		m.tx.On("Commit", ctx).Return(nil)

		outcome, err := service.HandleNotification(ctx, gateway.PaymentNotification{PaymentID: "99", Action: "payment.updated"})

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		m.orders.AssertExpectations(t)
		m.transactions.AssertExpectations(t)
	})
}

func TestPaymentService_Ingest_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	service, m := newPaymentService(t)
	n := gateway.PaymentNotification{PaymentID: "500"}

	m.client.On("GetPayment", mock.Anything, "500").Return(nil, gateway.ErrUnavailable)

	var retries []func(context.Context)
	m.deferrer.On("After", time.Minute, "payment-notification-retry", mock.AnythingOfType("func(context.Context)")).
		Run(func(args mock.Arguments) {
			retries = append(retries, args.Get(2).(func(context.Context)))
		}).
		Return(nil)

	service.Ingest(ctx, n)
	for i := 0; i < len(retries); i++ {
		retries[i](ctx)
	}

	// One initial attempt plus three retries, then the notification is dropped.
	m.client.AssertNumberOfCalls(t, "GetPayment", 4)
	m.deferrer.AssertNumberOfCalls(t, "After", 3)
}

func TestPaymentService_InitiatePayment(t *testing.T) {
	ctx := context.Background()
	payer := &model.Consumer{ID: uuid.New(), Name: "Ana Souza", Email: "ana@example.com"}

	t.Run("Pix payment stores the payment id", func(t *testing.T) {
		service, m := newPaymentService(t)
		order := pendingOrder()

		m.client.On("CreatePayment", ctx, mock.MatchedBy(func(req gateway.PaymentRequest) bool {
			return req.OrderID == order.ID && req.Amount.Equal(order.TotalAmount) &&
				req.Method == model.PaymentMethodPix && req.Payer.Email == payer.Email
		})).Return(&gateway.Checkout{PaymentID: "321", Status: gateway.StatusPending, QRCode: "000201"}, nil)
		m.orders.On("SetPaymentID", ctx, nil, order.ID, "321").Return(nil)

		session, err := service.InitiatePayment(ctx, order, payer)

		require.NoError(t, err)
		assert.Equal(t, "321", session.PaymentID)
		assert.Equal(t, "000201", session.QRCode)
		require.NotNil(t, order.PaymentID)
		assert.Equal(t, "321", *order.PaymentID)
		m.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("Card checkout returns the preference", func(t *testing.T) {
		service, m := newPaymentService(t)
		order := pendingOrder()
		order.PaymentMethod = model.PaymentMethodCreditCard

		m.client.On("CreatePayment", ctx, mock.AnythingOfType("gateway.PaymentRequest")).
			Return(&gateway.Checkout{PreferenceID: "pref-1", CheckoutURL: "https://mp.example/checkout"}, nil)

		session, err := service.InitiatePayment(ctx, order, payer)

		require.NoError(t, err)
		assert.Equal(t, "pref-1", session.PaymentID)
		assert.Equal(t, "https://mp.example/checkout", session.CheckoutURL)
		assert.Nil(t, order.PaymentID)
		m.orders.AssertNotCalled(t, "SetPaymentID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Gateway failure is returned", func(t *testing.T) {
		service, m := newPaymentService(t)
		m.client.On("CreatePayment", ctx, mock.Anything).Return(nil, gateway.ErrUnavailable)

		_, err := service.InitiatePayment(ctx, pendingOrder(), payer)

		require.ErrorIs(t, err, gateway.ErrUnavailable)
	})
}
