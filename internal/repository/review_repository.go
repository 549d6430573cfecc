package repository

import (
	"context"
	"fmt"

	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// reviewRepository implements the ReviewRepository interface using PostgreSQL.
type reviewRepository struct {
	txStarter
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReviewRepository {
	return &reviewRepository{txStarter{
		pool:   pool,
		logger: logger.With().Str("repository", "review").Logger(),
	}}
}

// Create inserts a review. Reports false when the order was already reviewed.
func (r *reviewRepository) Create(ctx context.Context, tx pgx.Tx, review *model.Review) (bool, error) {
	query := `
		INSERT INTO reviews (id, order_id, consumer_id, restaurant_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		review.ID, review.OrderID, review.ConsumerID, review.RestaurantID, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", review.OrderID.String()).Msg("failed to create review")
		return false, fmt.Errorf("failed to create review: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByRestaurant returns a page of a restaurant's reviews, newest first.
func (r *reviewRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, page model.Page) ([]model.ReviewView, int, error) {
	query := `
		SELECT rv.id, rv.order_id, rv.consumer_id, rv.restaurant_id, rv.rating, rv.comment, rv.created_at,
			c.name, ''
		FROM reviews rv
		JOIN consumers c ON c.id = rv.consumer_id
		WHERE rv.restaurant_id = $1
		ORDER BY rv.created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, `SELECT COUNT(*) FROM reviews WHERE restaurant_id = $1`, query, restaurantID, page)
}

// ListByConsumer returns a page of a consumer's reviews, newest first.
func (r *reviewRepository) ListByConsumer(ctx context.Context, consumerID uuid.UUID, page model.Page) ([]model.ReviewView, int, error) {
	query := `
		SELECT rv.id, rv.order_id, rv.consumer_id, rv.restaurant_id, rv.rating, rv.comment, rv.created_at,
			'', rs.name
		FROM reviews rv
		JOIN restaurants rs ON rs.id = rv.restaurant_id
		WHERE rv.consumer_id = $1
		ORDER BY rv.created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, `SELECT COUNT(*) FROM reviews WHERE consumer_id = $1`, query, consumerID, page)
}

func (r *reviewRepository) list(ctx context.Context, countQuery, query string, ownerID uuid.UUID, page model.Page) ([]model.ReviewView, int, error) {
	page = page.Normalize()

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, ownerID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Str("owner_id", ownerID.String()).Msg("failed to count reviews")
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, ownerID, page.Limit, page.Offset())
	if err != nil {
		r.logger.Error().Err(err).Str("owner_id", ownerID.String()).Msg("failed to query reviews")
		return nil, 0, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var list []model.ReviewView
	for rows.Next() {
		var v model.ReviewView
		err := rows.Scan(
			&v.ID, &v.OrderID, &v.ConsumerID, &v.RestaurantID, &v.Rating, &v.Comment, &v.CreatedAt,
			&v.ConsumerName, &v.RestaurantName,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan review row")
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		list = append(list, v)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating review rows")
		return nil, 0, fmt.Errorf("error iterating reviews: %w", err)
	}

	return list, total, nil
}
