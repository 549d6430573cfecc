package service

import (
	"context"
	"fmt"

	"surplus-market/internal/model"
	"surplus-market/internal/notify"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// reviewService implements ReviewService.
type reviewService struct {
	reviews     repository.ReviewRepository
	orders      repository.OrderRepository
	restaurants repository.RestaurantRepository
	notifier    Notifier
	clock       clockwork.Clock
	logger      zerolog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	orders repository.OrderRepository,
	restaurants repository.RestaurantRepository,
	notifier Notifier,
	clock clockwork.Clock,
	logger zerolog.Logger,
) ReviewService {
	return &reviewService{
		reviews:     reviews,
		orders:      orders,
		restaurants: restaurants,
		notifier:    notifier,
		clock:       clock,
		logger:      logger.With().Str("service", "review").Logger(),
	}
}

// CreateReview records a rating for a completed order and refreshes the
// restaurant average.
func (s *reviewService) CreateReview(ctx context.Context, consumerID uuid.UUID, req model.ReviewRequest) (_ *model.Review, err error) {
	if req.Rating < model.MinRating || req.Rating > model.MaxRating {
		return nil, model.ErrInvalidRating
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.ConsumerID != consumerID {
		return nil, model.ErrNotOrderOwner
	}
	if order.Status != model.OrderStatusCompleted {
		return nil, model.NewInvalidOrderStateError("review", order.Status)
	}

	tx, err := s.reviews.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	review := &model.Review{
		ID:           uuid.New(),
		OrderID:      order.ID,
		ConsumerID:   consumerID,
		RestaurantID: order.RestaurantID,
		Rating:       req.Rating,
		Comment:      req.Comment,
		CreatedAt:    s.clock.Now(),
	}

	created, err := s.reviews.Create(ctx, tx, review)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	if !created {
		return nil, model.ErrAlreadyReviewed
	}

	summary, err := s.restaurants.RecomputeRating(ctx, tx, order.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	if summary.Total >= model.LowRatingMinReviews &&
		decimal.NewFromFloat(summary.Average).LessThan(model.LowRatingThreshold) {
		if err = s.notifier.Notify(ctx, tx, notify.LowRatingAlert(order.RestaurantID, *summary)); err != nil {
			return nil, fmt.Errorf("failed to create review: %w", err)
		}
		s.logger.Warn().
			Str("restaurant_id", order.RestaurantID.String()).
			Float64("average", summary.Average).
			Int("total", summary.Total).
			Msg("restaurant rating below threshold")
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// ListRestaurantReviews returns a page of a restaurant's reviews and its rating.
func (s *reviewService) ListRestaurantReviews(ctx context.Context, restaurantID uuid.UUID, page model.Page) (*model.RestaurantReviews, error) {
	page = page.Normalize()

	restaurant, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if restaurant == nil {
		return nil, model.ErrRestaurantNotFound
	}

	items, total, err := s.reviews.ListByRestaurant(ctx, restaurantID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return &model.RestaurantReviews{
		PageResult: model.NewPageResult(items, total, page),
		Summary: model.RatingSummary{
			Average: restaurant.AverageRating.InexactFloat64(),
			Total:   restaurant.TotalRatings,
		},
	}, nil
}

// ListConsumerReviews returns a page of the reviews a consumer wrote.
func (s *reviewService) ListConsumerReviews(ctx context.Context, consumerID uuid.UUID, page model.Page) (model.PageResult[model.ReviewView], error) {
	page = page.Normalize()

	items, total, err := s.reviews.ListByConsumer(ctx, consumerID, page)
	if err != nil {
		return model.PageResult[model.ReviewView]{}, fmt.Errorf("failed to list reviews: %w", err)
	}
	return model.NewPageResult(items, total, page), nil
}
