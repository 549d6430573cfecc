package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"surplus-market/internal/config"
	"surplus-market/internal/database"
	"surplus-market/internal/middleware"
	"surplus-market/internal/model"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// seed creates a demo restaurant with one offer starting in an hour, a demo
// consumer, and prints bearer tokens for both.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger(cfg.Logger, cfg.App.Env)

	ctx := context.Background()
	if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	now := time.Now().UTC().Truncate(time.Minute)
	suffix := uuid.NewString()[:8]

	restaurant := &model.Restaurant{
		ID:         uuid.New(),
		Name:       "Padaria Demo " + suffix,
		Email:      "padaria-" + suffix + "@example.com",
		TaxID:      "00.000.000/" + suffix,
		Address:    "Av. Paulista, 1000 - São Paulo",
		Latitude:   -23.5614,
		Longitude:  -46.6559,
		IsApproved: true,
		CreatedAt:  now,
	}
	if err := repository.NewRestaurantRepository(pool, logger).Create(ctx, restaurant); err != nil {
		log.Fatalf("Failed to seed restaurant: %v", err)
	}

	consumer := &model.Consumer{
		ID:            uuid.New(),
		Name:          "Consumidor Demo",
		Email:         "consumer-" + suffix + "@example.com",
		CreditBalance: decimal.Zero,
		IsActive:      true,
		CreatedAt:     now,
	}
	if err := repository.NewConsumerRepository(pool, logger).Create(ctx, consumer); err != nil {
		log.Fatalf("Failed to seed consumer: %v", err)
	}

	original := decimal.RequireFromString("40.00")
	promo := decimal.RequireFromString("15.90")
	offer := &model.Offer{
		ID:                uuid.New(),
		RestaurantID:      restaurant.ID,
		PackageType:       "Sacola surpresa",
		Description:       "Pães e doces do dia",
		Quantity:          10,
		AvailableQuantity: 10,
		OriginalPrice:     original,
		PromotionalPrice:  promo,
		DiscountPercent:   original.Sub(promo).Div(original).Mul(decimal.NewFromInt(100)).Round(2),
		PickupStartTime:   now.Add(time.Hour),
		PickupEndTime:     now.Add(3 * time.Hour),
		IsVegetarian:      true,
		Status:            model.OfferStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := repository.NewOfferRepository(pool, logger).Create(ctx, offer); err != nil {
		log.Fatalf("Failed to seed offer: %v", err)
	}

	restaurantToken, err := middleware.IssueToken(cfg.Auth.JWTSecret,
		model.Identity{ID: restaurant.ID, Role: model.RoleRestaurant}, 24*time.Hour, time.Now())
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	consumerToken, err := middleware.IssueToken(cfg.Auth.JWTSecret,
		model.Identity{ID: consumer.ID, Role: model.RoleConsumer}, 24*time.Hour, time.Now())
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stdout, "restaurant  %s\n  token: %s\n", restaurant.ID, restaurantToken)
	fmt.Fprintf(os.Stdout, "consumer    %s\n  token: %s\n", consumer.ID, consumerToken)
	fmt.Fprintf(os.Stdout, "offer       %s\n", offer.ID)
}
