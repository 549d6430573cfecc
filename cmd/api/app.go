package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"surplus-market/internal/config"
	"surplus-market/internal/database"
	"surplus-market/internal/gateway"
	"surplus-market/internal/handler"
	"surplus-market/internal/notify"
	"surplus-market/internal/pickup"
	"surplus-market/internal/repository"
	"surplus-market/internal/router"
	"surplus-market/internal/scheduler"
	"surplus-market/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// application holds the wired components shared by the commands.
type application struct {
	cfg       *config.Config
	logger    zerolog.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	scheduler *scheduler.Scheduler
	handler   http.Handler
}

// newApplication connects to the store and wires repositories, services and
// handlers. Sweep jobs are registered on the scheduler but not started.
func newApplication(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger}
	clock := clockwork.NewRealClock()

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone: %w", err)
	}

	// Initialize database connection pool
	app.pool, err = database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	offerRepo := repository.NewOfferRepository(app.pool, logger)
	orderRepo := repository.NewOrderRepository(app.pool, logger)
	consumerRepo := repository.NewConsumerRepository(app.pool, logger)
	restaurantRepo := repository.NewRestaurantRepository(app.pool, logger)
	transactionRepo := repository.NewTransactionRepository(app.pool, logger)
	notificationRepo := repository.NewNotificationRepository(app.pool, logger)
	reviewRepo := repository.NewReviewRepository(app.pool, logger)

	// Notification dedup with Redis and in-memory fallback
	deduper := app.newDeduper(ctx, clock)
	notifier := notify.NewNotifier(notificationRepo, deduper, clock, logger)

	app.scheduler, err = scheduler.New(clock, loc, logger)
	if err != nil {
		app.close()
		return nil, err
	}

	// Pickup artifacts in S3 with local fallback
	publisher := pickup.NewPublisher(pickup.NewQRRenderer(), app.newArtifactStore(ctx))

	gatewayClient := gateway.NewClient(gateway.ClientConfig{
		BaseURL:         cfg.Payment.BaseURL,
		AccessToken:     cfg.Payment.AccessToken,
		NotificationURL: cfg.Payment.NotificationURL,
		Timeout:         cfg.Payment.Timeout,
		MaxRetries:      cfg.Payment.MaxRetries,
	}, logger)

	// Initialize services
	inventory := service.NewInventory(offerRepo, logger)
	penalties := service.NewPenaltyService(consumerRepo, notifier, logger)
	canceller := service.NewOrderCanceller(orderRepo, consumerRepo, inventory, notifier, gatewayClient, logger)
	payments := service.NewPaymentService(orderRepo, transactionRepo, inventory, canceller, notifier, gatewayClient, app.scheduler,
		service.RetryPolicy{Delay: cfg.Payment.RetryDelay, Attempts: cfg.Payment.RetryAttempts}, clock, logger)
	orders := service.NewOrderService(service.OrderDeps{
		Orders:    orderRepo,
		Consumers: consumerRepo,
		Inventory: inventory,
		Penalties: penalties,
		Payments:  payments,
		Refunder:  gatewayClient,
		Publisher: publisher,
		Notifier:  notifier,
	}, clock, logger)
	offers := service.NewOfferService(offerRepo, orderRepo, restaurantRepo, orders, clock, logger)
	pickups := service.NewPickupService(orderRepo, transactionRepo, notifier, app.scheduler, clock, logger)
	discovery := service.NewDiscoveryService(offerRepo, clock, logger)
	reviews := service.NewReviewService(reviewRepo, orderRepo, restaurantRepo, notifier, clock, logger)
	notifications := service.NewNotificationService(notificationRepo, logger)
	profiles := service.NewProfileService(consumerRepo, restaurantRepo, logger)
	sales := service.NewSalesService(transactionRepo, loc, logger)
	sweeps := service.NewSweepService(offerRepo, orderRepo, transactionRepo, inventory, penalties, notifier, loc, logger)

	for _, job := range sweeps.Jobs() {
		if err := app.scheduler.Register(job); err != nil {
			app.close()
			return nil, fmt.Errorf("failed to register job %s: %w", job.Name, err)
		}
	}

	// Initialize HTTP handlers and router
	var staticDir string
	if !cfg.S3.Enabled {
		staticDir = cfg.Artifacts.Dir
	}
	app.handler = router.New(router.Handlers{
		Offers:        handler.NewOfferHandler(offers, discovery, logger),
		Orders:        handler.NewOrderHandler(orders, logger),
		Pickups:       handler.NewPickupHandler(pickups, logger),
		Reviews:       handler.NewReviewHandler(reviews, logger),
		Notifications: handler.NewNotificationHandler(notifications, logger),
		Profiles:      handler.NewProfileHandler(profiles, logger),
		Sales:         handler.NewSalesHandler(sales, logger),
		Webhooks: handler.NewWebhookHandler(payments, handler.WebhookConfig{
			Secret: cfg.Payment.SigningSecret(),
			Strict: cfg.App.IsProduction(),
		}, logger),
	}, router.Options{
		JWTSecret:         cfg.Auth.JWTSecret,
		EnableTestWebhook: !cfg.App.IsProduction(),
		StaticDir:         staticDir,
		StaticPrefix:      cfg.Artifacts.BaseURL,
	}, logger)

	return app, nil
}

func (a *application) newDeduper(ctx context.Context, clock clockwork.Clock) notify.Deduper {
	if !a.cfg.Redis.Enabled {
		a.logger.Info().Msg("using in-memory notification dedup (redis disabled)")
		return notify.NewMemoryDeduper(clock)
	}

	opts, err := redis.ParseURL(a.cfg.Redis.URL)
	if err != nil {
		a.logger.Warn().Err(err).Msg("invalid redis URL, falling back to in-memory dedup")
		return notify.NewMemoryDeduper(clock)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn().Err(err).Msg("redis unreachable, falling back to in-memory dedup")
		client.Close()
		return notify.NewMemoryDeduper(clock)
	}

	a.redis = client
	return notify.NewRedisDeduper(client)
}

func (a *application) newArtifactStore(ctx context.Context) pickup.Store {
	fileStore := pickup.NewFileStore(a.cfg.Artifacts.Dir, a.cfg.Artifacts.BaseURL, a.logger)
	if !a.cfg.S3.Enabled {
		a.logger.Info().Msg("using local file system for pickup artifacts (S3 disabled)")
		return fileStore
	}

	s3Store, err := pickup.NewS3Store(ctx, a.cfg.S3.Bucket, a.cfg.S3.Region, a.cfg.S3.Prefix, a.cfg.S3.BaseURL, a.logger)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Msg("failed to initialise S3 store, falling back to local file system only")
		return fileStore
	}
	return pickup.NewFallbackStore(s3Store, fileStore, true, a.logger)
}

// close releases the store connections.
func (a *application) close() {
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			a.logger.Error().Err(err).Msg("failed to shutdown scheduler")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
