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

const restaurantColumns = `id, name, email, tax_id, address, latitude, longitude,
	is_approved, average_rating, total_ratings, created_at`

// restaurantRepository implements the RestaurantRepository interface using PostgreSQL.
type restaurantRepository struct {
	txStarter
}

// NewRestaurantRepository creates a new PostgreSQL-backed restaurant repository.
func NewRestaurantRepository(pool *pgxpool.Pool, logger zerolog.Logger) RestaurantRepository {
	return &restaurantRepository{txStarter{
		pool:   pool,
		logger: logger.With().Str("repository", "restaurant").Logger(),
	}}
}

func scanRestaurant(row rowScanner, rest *model.Restaurant) error {
	return row.Scan(
		&rest.ID,
		&rest.Name,
		&rest.Email,
		&rest.TaxID,
		&rest.Address,
		&rest.Latitude,
		&rest.Longitude,
		&rest.IsApproved,
		&rest.AverageRating,
		&rest.TotalRatings,
		&rest.CreatedAt,
	)
}

// Create inserts a new restaurant.
func (r *restaurantRepository) Create(ctx context.Context, rest *model.Restaurant) error {
	query := `
		INSERT INTO restaurants (` + restaurantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		rest.ID, rest.Name, rest.Email, rest.TaxID, rest.Address, rest.Latitude, rest.Longitude,
		rest.IsApproved, rest.AverageRating, rest.TotalRatings, rest.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("restaurant_id", rest.ID.String()).Msg("failed to create restaurant")
		return fmt.Errorf("failed to create restaurant: %w", err)
	}
	return nil
}

// GetByID retrieves a restaurant.
func (r *restaurantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1`

	var rest model.Restaurant
	if err := scanRestaurant(r.pool.QueryRow(ctx, query, id), &rest); err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("restaurant_id", id.String()).Msg("restaurant not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("restaurant_id", id.String()).Msg("failed to query restaurant")
		return nil, fmt.Errorf("failed to query restaurant: %w", err)
	}
	return &rest, nil
}

// RecomputeRating refreshes the average and total from reviews.
func (r *restaurantRepository) RecomputeRating(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.RatingSummary, error) {
	query := `
		UPDATE restaurants
		SET average_rating = s.avg, total_ratings = s.total
		FROM (
			SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0) AS avg, COUNT(*) AS total
			FROM reviews
			WHERE restaurant_id = $1
		) s
		WHERE restaurants.id = $1
		RETURNING s.avg::float8, s.total::int
	`

	var summary model.RatingSummary
	if err := tx.QueryRow(ctx, query, id).Scan(&summary.Average, &summary.Total); err != nil {
		r.logger.Error().Err(err).Str("restaurant_id", id.String()).Msg("failed to recompute rating")
		return nil, fmt.Errorf("failed to recompute rating: %w", err)
	}
	return &summary, nil
}

// UpdateProfile writes the non-nil fields of update.
func (r *restaurantRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update model.RestaurantProfileUpdate) (*model.Restaurant, error) {
	query := `
		UPDATE restaurants
		SET name = COALESCE($2, name),
			address = COALESCE($3, address),
			latitude = COALESCE($4, latitude),
			longitude = COALESCE($5, longitude)
		WHERE id = $1
		RETURNING ` + restaurantColumns

	var rest model.Restaurant
	row := r.pool.QueryRow(ctx, query, id, update.Name, update.Address, update.Latitude, update.Longitude)
	if err := scanRestaurant(row, &rest); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("restaurant_id", id.String()).Msg("failed to update restaurant profile")
		return nil, fmt.Errorf("failed to update restaurant profile: %w", err)
	}

	r.logger.Debug().Str("restaurant_id", id.String()).Msg("restaurant profile updated")
	return &rest, nil
}
