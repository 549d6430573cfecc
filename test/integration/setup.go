package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"surplus-market/internal/config"
	"surplus-market/internal/database"
	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, applies the migrations and
// opens a connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	if err := database.Migrate(connStr, logger); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	pool, err := database.NewPoolFromURL(ctx, connStr, config.DatabaseConfig{
		MaxConnections:  20,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedRestaurant inserts an approved restaurant at the given position.
func SeedRestaurant(t *testing.T, pool *pgxpool.Pool, name string, lat, lng float64) *model.Restaurant {
	t.Helper()

	r := &model.Restaurant{
		ID:         uuid.New(),
		Name:       name,
		Email:      uuid.NewString() + "@restaurant.test",
		TaxID:      uuid.NewString()[:14],
		Address:    name + " street",
		Latitude:   lat,
		Longitude:  lng,
		IsApproved: true,
	}
	_, err := pool.Exec(context.Background(), `
		INSERT INTO restaurants (id, name, email, tax_id, address, latitude, longitude, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Name, r.Email, r.TaxID, r.Address, r.Latitude, r.Longitude, r.IsApproved,
	)
	if err != nil {
		t.Fatalf("failed to seed restaurant %s: %v", name, err)
	}
	return r
}

// SeedConsumer inserts an active consumer.
func SeedConsumer(t *testing.T, pool *pgxpool.Pool, name string) *model.Consumer {
	t.Helper()

	c := &model.Consumer{
		ID:       uuid.New(),
		Name:     name,
		Email:    uuid.NewString() + "@consumer.test",
		IsActive: true,
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO consumers (id, name, email, is_active) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Email, c.IsActive,
	)
	if err != nil {
		t.Fatalf("failed to seed consumer %s: %v", name, err)
	}
	return c
}

// OfferSeed describes an offer inserted directly, bypassing creation rules.
type OfferSeed struct {
	Quantity    int
	Price       string
	Original    string
	Start, End  time.Time
	Vegetarian  bool
	Vegan       bool
	Status      model.OfferStatus
	Description string
}

// SeedOffer inserts an offer for restaurantID.
func SeedOffer(t *testing.T, pool *pgxpool.Pool, restaurantID uuid.UUID, s OfferSeed) *model.Offer {
	t.Helper()

	if s.Status == "" {
		s.Status = model.OfferStatusActive
	}
	if s.Original == "" {
		s.Original = "30.00"
	}
	if s.Price == "" {
		s.Price = "12.00"
	}
	original := decimal.RequireFromString(s.Original)
	promo := decimal.RequireFromString(s.Price)

	o := &model.Offer{
		ID:                uuid.New(),
		RestaurantID:      restaurantID,
		PackageType:       "Surprise bag",
		Description:       s.Description,
		Quantity:          s.Quantity,
		AvailableQuantity: s.Quantity,
		OriginalPrice:     original,
		PromotionalPrice:  promo,
		DiscountPercent:   original.Sub(promo).Div(original).Mul(decimal.NewFromInt(100)).Round(2),
		PickupStartTime:   s.Start,
		PickupEndTime:     s.End,
		IsVegetarian:      s.Vegetarian,
		IsVegan:           s.Vegan,
		Status:            s.Status,
	}
	_, err := pool.Exec(context.Background(), `
		INSERT INTO offers (id, restaurant_id, package_type, description, quantity, available_quantity,
			original_price, promotional_price, discount_percent, pickup_start_time, pickup_end_time,
			is_vegetarian, is_vegan, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.RestaurantID, o.PackageType, o.Description, o.Quantity, o.AvailableQuantity,
		o.OriginalPrice, o.PromotionalPrice, o.DiscountPercent, o.PickupStartTime, o.PickupEndTime,
		o.IsVegetarian, o.IsVegan, o.Status,
	)
	if err != nil {
		t.Fatalf("failed to seed offer: %v", err)
	}
	return o
}

// SeedOrder inserts an order for one unit of offer in the given state.
func SeedOrder(t *testing.T, pool *pgxpool.Pool, consumerID uuid.UUID, offer *model.Offer, status model.OrderStatus) uuid.UUID {
	t.Helper()

	id := uuid.New()
	fee := offer.PromotionalPrice.Mul(model.PlatformFeeRate).Round(2)
	payment := model.PaymentStatusApproved
	if status == model.OrderStatusPendingPayment {
		payment = model.PaymentStatusPending
	}
	_, err := pool.Exec(context.Background(), `
		INSERT INTO orders (id, consumer_id, offer_id, restaurant_id, quantity,
			original_price, promotional_price, total_amount, platform_fee, restaurant_amount,
			payment_method, payment_status, pickup_code, status)
		VALUES ($1, $2, $3, $4, 1, $5, $6, $6, $7, $8, 'PIX', $9, $10, $11)`,
		id, consumerID, offer.ID, offer.RestaurantID,
		offer.OriginalPrice, offer.PromotionalPrice, fee, offer.PromotionalPrice.Sub(fee),
		payment, strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:10], status,
	)
	if err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return id
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"reviews", "notifications", "transactions", "orders", "offers", "consumers", "restaurants"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
