package integration

import (
	"net/http"
	"testing"
	"time"

	"surplus-market/internal/gateway"
	"surplus-market/internal/handler"
	"surplus-market/internal/notify"
	"surplus-market/internal/pickup"
	"surplus-market/internal/repository"
	"surplus-market/internal/router"
	"surplus-market/internal/scheduler"
	"surplus-market/internal/service"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret     = "integration-secret"
	testWebhookSecret = "integration-webhook-secret"
	artifactPrefix    = "/static/pickup-codes"
)

// Stack is the service graph wired against a test database and a fake gateway.
type Stack struct {
	Clock         clockwork.Clock
	ArtifactDir   string
	Offers        service.OfferService
	Orders        service.OrderManager
	Payments      service.PaymentProcessor
	Pickups       service.PickupService
	Discovery     service.DiscoveryService
	Penalties     service.PenaltyService
	Reviews       service.ReviewService
	Notifications service.NotificationService
	Profiles      service.ProfileService
	Sales         service.SalesService
	Sweeps        *service.SweepService
}

// NewStack wires every service the way the server does, with in-memory dedup
// and local artifact storage.
func NewStack(t *testing.T, testDB *TestDB, gatewayURL string, clock clockwork.Clock) *Stack {
	t.Helper()

	logger := zerolog.Nop()

	// Initialize repositories
	offerRepo := repository.NewOfferRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	consumerRepo := repository.NewConsumerRepository(testDB.Pool, logger)
	restaurantRepo := repository.NewRestaurantRepository(testDB.Pool, logger)
	transactionRepo := repository.NewTransactionRepository(testDB.Pool, logger)
	notificationRepo := repository.NewNotificationRepository(testDB.Pool, logger)
	reviewRepo := repository.NewReviewRepository(testDB.Pool, logger)

	notifier := notify.NewNotifier(notificationRepo, notify.NewMemoryDeduper(clock), clock, logger)
	sched, err := scheduler.New(clock, time.UTC, logger)
	require.NoError(t, err)
	sched.Start()
	t.Cleanup(func() { _ = sched.Shutdown() })

	artifactDir := t.TempDir()
	publisher := pickup.NewPublisher(pickup.NewQRRenderer(), pickup.NewFileStore(artifactDir, artifactPrefix, logger))
	client := gateway.NewClient(gateway.ClientConfig{
		BaseURL:     gatewayURL,
		AccessToken: "TEST-token",
		Timeout:     2 * time.Second,
	}, logger)

	// Initialize services
	inventory := service.NewInventory(offerRepo, logger)
	penalties := service.NewPenaltyService(consumerRepo, notifier, logger)
	canceller := service.NewOrderCanceller(orderRepo, consumerRepo, inventory, notifier, client, logger)
	payments := service.NewPaymentService(orderRepo, transactionRepo, inventory, canceller, notifier, client, sched,
		service.RetryPolicy{Delay: time.Second, Attempts: 1}, clock, logger)
	orders := service.NewOrderService(service.OrderDeps{
		Orders:    orderRepo,
		Consumers: consumerRepo,
		Inventory: inventory,
		Penalties: penalties,
		Payments:  payments,
		Refunder:  client,
		Publisher: publisher,
		Notifier:  notifier,
	}, clock, logger)

	return &Stack{
		Clock:         clock,
		ArtifactDir:   artifactDir,
		Offers:        service.NewOfferService(offerRepo, orderRepo, restaurantRepo, orders, clock, logger),
		Orders:        orders,
		Payments:      payments,
		Pickups:       service.NewPickupService(orderRepo, transactionRepo, notifier, sched, clock, logger),
		Discovery:     service.NewDiscoveryService(offerRepo, clock, logger),
		Penalties:     penalties,
		Reviews:       service.NewReviewService(reviewRepo, orderRepo, restaurantRepo, notifier, clock, logger),
		Notifications: service.NewNotificationService(notificationRepo, logger),
		Profiles:      service.NewProfileService(consumerRepo, restaurantRepo, logger),
		Sales:         service.NewSalesService(transactionRepo, time.UTC, logger),
		Sweeps:        service.NewSweepService(offerRepo, orderRepo, transactionRepo, inventory, penalties, notifier, time.UTC, logger),
	}
}

// Router mounts the stack behind the HTTP router with strict webhook signatures.
func (s *Stack) Router() http.Handler {
	logger := zerolog.Nop()
	return router.New(router.Handlers{
		Offers:        handler.NewOfferHandler(s.Offers, s.Discovery, logger),
		Orders:        handler.NewOrderHandler(s.Orders, logger),
		Pickups:       handler.NewPickupHandler(s.Pickups, logger),
		Reviews:       handler.NewReviewHandler(s.Reviews, logger),
		Notifications: handler.NewNotificationHandler(s.Notifications, logger),
		Profiles:      handler.NewProfileHandler(s.Profiles, logger),
		Sales:         handler.NewSalesHandler(s.Sales, logger),
		Webhooks: handler.NewWebhookHandler(s.Payments, handler.WebhookConfig{
			Secret: testWebhookSecret,
			Strict: true,
		}, logger),
	}, router.Options{
		JWTSecret:    testJWTSecret,
		StaticDir:    s.ArtifactDir,
		StaticPrefix: artifactPrefix,
	}, logger)
}
