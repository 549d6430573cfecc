package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const offerColumns = `id, restaurant_id, package_type, description, quantity, available_quantity,
	original_price, promotional_price, discount_percent, pickup_start_time, pickup_end_time,
	is_vegetarian, is_vegan, status, created_at, updated_at`

// offerRepository implements the OfferRepository interface using PostgreSQL.
type offerRepository struct {
	txStarter
}

// NewOfferRepository creates a new PostgreSQL-backed offer repository.
func NewOfferRepository(pool *pgxpool.Pool, logger zerolog.Logger) OfferRepository {
	return &offerRepository{txStarter{
		pool:   pool,
		logger: logger.With().Str("repository", "offer").Logger(),
	}}
}

func scanOffer(row rowScanner, o *model.Offer) error {
	return row.Scan(
		&o.ID,
		&o.RestaurantID,
		&o.PackageType,
		&o.Description,
		&o.Quantity,
		&o.AvailableQuantity,
		&o.OriginalPrice,
		&o.PromotionalPrice,
		&o.DiscountPercent,
		&o.PickupStartTime,
		&o.PickupEndTime,
		&o.IsVegetarian,
		&o.IsVegan,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

// queryOffer runs a single-row offer query. Returns nil when no row matched.
func (r *offerRepository) queryOffer(ctx context.Context, q querier, op string, id uuid.UUID, query string, args ...any) (*model.Offer, error) {
	var o model.Offer
	if err := scanOffer(q.QueryRow(ctx, query, args...), &o); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("offer_id", id.String()).Msgf("failed to %s offer", op)
		return nil, fmt.Errorf("failed to %s offer: %w", op, err)
	}
	return &o, nil
}

// Create inserts a new offer.
func (r *offerRepository) Create(ctx context.Context, offer *model.Offer) error {
	query := `
		INSERT INTO offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.pool.Exec(ctx, query,
		offer.ID, offer.RestaurantID, offer.PackageType, offer.Description,
		offer.Quantity, offer.AvailableQuantity,
		offer.OriginalPrice, offer.PromotionalPrice, offer.DiscountPercent,
		offer.PickupStartTime, offer.PickupEndTime,
		offer.IsVegetarian, offer.IsVegan, offer.Status,
		offer.CreatedAt, offer.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("offer_id", offer.ID.String()).
			Str("restaurant_id", offer.RestaurantID.String()).
			Msg("failed to create offer")
		return fmt.Errorf("failed to create offer: %w", err)
	}

	r.logger.Debug().Str("offer_id", offer.ID.String()).Msg("offer created successfully")
	return nil
}

// GetByID retrieves an offer by its ID.
func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	return r.queryOffer(ctx, r.pool, "query", id, query, id)
}

// GetByIDTx retrieves an offer through tx.
func (r *offerRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	return r.queryOffer(ctx, tx, "query", id, query, id)
}

// GetForShare retrieves an offer through tx and holds a share lock on its row
// until tx ends.
func (r *offerRepository) GetForShare(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 FOR SHARE`
	return r.queryOffer(ctx, tx, "lock", id, query, id)
}

// Reserve decrements available units and flips to SOLD_OUT in the same statement.
func (r *offerRepository) Reserve(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int, now time.Time) (*model.Offer, error) {
	query := `
		UPDATE offers
		SET available_quantity = available_quantity - $2,
			status = CASE WHEN available_quantity - $2 = 0 THEN 'SOLD_OUT' ELSE status END,
			updated_at = $3
		WHERE id = $1
			AND status = 'ACTIVE'
			AND pickup_end_time > $3
			AND available_quantity >= $2
		RETURNING ` + offerColumns

	offer, err := r.queryOffer(ctx, tx, "reserve", id, query, id, qty, now)
	if err != nil || offer == nil {
		return offer, err
	}

	r.logger.Debug().
		Str("offer_id", id.String()).
		Int("quantity", qty).
		Int("available", offer.AvailableQuantity).
		Msg("units reserved")
	return offer, nil
}

// Release returns units to an offer. A CANCELLED offer keeps its status.
func (r *offerRepository) Release(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int, now time.Time) (*model.Offer, error) {
	query := `
		UPDATE offers
		SET available_quantity = available_quantity + $2,
			status = CASE
				WHEN status IN ('SOLD_OUT', 'EXPIRED') AND pickup_end_time > $3 THEN 'ACTIVE'
				ELSE status
			END,
			updated_at = $3
		WHERE id = $1
		RETURNING ` + offerColumns

	offer, err := r.queryOffer(ctx, tx, "release", id, query, id, qty, now)
	if err != nil || offer == nil {
		return offer, err
	}

	r.logger.Debug().
		Str("offer_id", id.String()).
		Int("quantity", qty).
		Int("available", offer.AvailableQuantity).
		Str("status", string(offer.Status)).
		Msg("units released")
	return offer, nil
}

// MarkExpired moves an ACTIVE offer whose window has ended to EXPIRED.
func (r *offerRepository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE offers
		SET status = 'EXPIRED', updated_at = $2
		WHERE id = $1 AND status = 'ACTIVE' AND pickup_end_time <= $2
	`

	tag, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		r.logger.Error().Err(err).Str("offer_id", id.String()).Msg("failed to expire offer")
		return false, fmt.Errorf("failed to expire offer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel moves a non-cancelled offer to CANCELLED.
func (r *offerRepository) Cancel(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE offers
		SET status = 'CANCELLED', updated_at = $2
		WHERE id = $1 AND status <> 'CANCELLED'
	`

	tag, err := tx.Exec(ctx, query, id, now)
	if err != nil {
		r.logger.Error().Err(err).Str("offer_id", id.String()).Msg("failed to cancel offer")
		return false, fmt.Errorf("failed to cancel offer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListEndedActive returns IDs of ACTIVE offers whose window ended before now.
func (r *offerRepository) ListEndedActive(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM offers
		WHERE status = 'ACTIVE' AND pickup_end_time < $1
		ORDER BY pickup_end_time
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query ended offers")
		return nil, fmt.Errorf("failed to query ended offers: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan ended offers")
		return nil, fmt.Errorf("failed to scan ended offers: %w", err)
	}
	return ids, nil
}

// discoveryWhere builds the shared discovery predicate. Arguments start at $1.
func discoveryWhere(filter model.OfferFilter, now time.Time) (string, []any) {
	conds := []string{
		"o.status = 'ACTIVE'",
		"o.available_quantity > 0",
		"o.pickup_end_time >= $1",
	}
	args := []any{now}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.MinPrice != nil {
		add("o.promotional_price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("o.promotional_price <= $%d", *filter.MaxPrice)
	}
	if filter.IsVegetarian != nil {
		add("o.is_vegetarian = $%d", *filter.IsVegetarian)
	}
	if filter.IsVegan != nil {
		add("o.is_vegan = $%d", *filter.IsVegan)
	}

	return strings.Join(conds, " AND "), args
}

const listingSelect = `
	SELECT o.id, o.restaurant_id, o.package_type, o.description, o.quantity, o.available_quantity,
		o.original_price, o.promotional_price, o.discount_percent, o.pickup_start_time, o.pickup_end_time,
		o.is_vegetarian, o.is_vegan, o.status, o.created_at, o.updated_at,
		r.name, r.address, r.latitude, r.longitude
	FROM offers o
	JOIN restaurants r ON r.id = o.restaurant_id
`

func (r *offerRepository) queryListings(ctx context.Context, query string, args ...any) ([]model.OfferListing, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query offers")
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var listings []model.OfferListing
	for rows.Next() {
		var l model.OfferListing
		err := rows.Scan(
			&l.ID, &l.RestaurantID, &l.PackageType, &l.Description, &l.Quantity, &l.AvailableQuantity,
			&l.OriginalPrice, &l.PromotionalPrice, &l.DiscountPercent, &l.PickupStartTime, &l.PickupEndTime,
			&l.IsVegetarian, &l.IsVegan, &l.Status, &l.CreatedAt, &l.UpdatedAt,
			&l.RestaurantName, &l.RestaurantAddress, &l.Latitude, &l.Longitude,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan offer row")
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating offer rows")
		return nil, fmt.Errorf("error iterating offers: %w", err)
	}

	return listings, nil
}

// Search returns one page of discoverable offers, newest first.
func (r *offerRepository) Search(ctx context.Context, filter model.OfferFilter, now time.Time) ([]model.OfferListing, error) {
	where, args := discoveryWhere(filter, now)
	page := filter.Page.Normalize()
	args = append(args, page.Limit, page.Offset())

	query := listingSelect + ` WHERE ` + where +
		fmt.Sprintf(` ORDER BY o.created_at DESC, o.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.queryListings(ctx, query, args...)
}

// Count returns the number of discoverable offers matching filter.
func (r *offerRepository) Count(ctx context.Context, filter model.OfferFilter, now time.Time) (int, error) {
	where, args := discoveryWhere(filter, now)
	query := `SELECT COUNT(*) FROM offers o WHERE ` + where

	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count offers")
		return 0, fmt.Errorf("failed to count offers: %w", err)
	}
	return total, nil
}

// SearchWithin returns every discoverable offer whose restaurant lies within bounds.
func (r *offerRepository) SearchWithin(ctx context.Context, filter model.OfferFilter, bounds model.Bounds, now time.Time) ([]model.OfferListing, error) {
	where, args := discoveryWhere(filter, now)
	n := len(args)
	args = append(args, bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon)

	query := listingSelect + ` WHERE ` + where +
		fmt.Sprintf(` AND r.latitude BETWEEN $%d AND $%d AND r.longitude BETWEEN $%d AND $%d`, n+1, n+2, n+3, n+4)

	return r.queryListings(ctx, query, args...)
}
