package repository

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const consumerColumns = `id, name, email, failed_pickups, blocked_until, credit_balance, is_active, created_at`

// consumerRepository implements the ConsumerRepository interface using PostgreSQL.
type consumerRepository struct {
	txStarter
}

// NewConsumerRepository creates a new PostgreSQL-backed consumer repository.
func NewConsumerRepository(pool *pgxpool.Pool, logger zerolog.Logger) ConsumerRepository {
	return &consumerRepository{txStarter{
		pool:   pool,
		logger: logger.With().Str("repository", "consumer").Logger(),
	}}
}

func scanConsumer(row rowScanner, c *model.Consumer) error {
	return row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.FailedPickups,
		&c.BlockedUntil,
		&c.CreditBalance,
		&c.IsActive,
		&c.CreatedAt,
	)
}

// Create inserts a new consumer.
func (r *consumerRepository) Create(ctx context.Context, c *model.Consumer) error {
	query := `INSERT INTO consumers (` + consumerColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Email, c.FailedPickups, c.BlockedUntil, c.CreditBalance, c.IsActive, c.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("consumer_id", c.ID.String()).Msg("failed to create consumer")
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	return nil
}

// GetByID retrieves a consumer.
func (r *consumerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Consumer, error) {
	query := `SELECT ` + consumerColumns + ` FROM consumers WHERE id = $1`

	var c model.Consumer
	if err := scanConsumer(r.pool.QueryRow(ctx, query, id), &c); err != nil {
		if isNoRows(err) {
			r.logger.Debug().Str("consumer_id", id.String()).Msg("consumer not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("consumer_id", id.String()).Msg("failed to query consumer")
		return nil, fmt.Errorf("failed to query consumer: %w", err)
	}
	return &c, nil
}

// RecordFailedPickup increments the counter and blocks at the limit in one statement.
func (r *consumerRepository) RecordFailedPickup(ctx context.Context, tx pgx.Tx, id uuid.UUID, limit int, blockUntil time.Time) (*model.Consumer, error) {
	query := `
		UPDATE consumers
		SET failed_pickups = failed_pickups + 1,
			blocked_until = CASE WHEN failed_pickups + 1 >= $2 THEN $3 ELSE blocked_until END
		WHERE id = $1
		RETURNING ` + consumerColumns

	var c model.Consumer
	if err := scanConsumer(tx.QueryRow(ctx, query, id, limit, blockUntil), &c); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("consumer_id", id.String()).Msg("failed to record failed pickup")
		return nil, fmt.Errorf("failed to record failed pickup: %w", err)
	}

	r.logger.Debug().
		Str("consumer_id", id.String()).
		Int("failed_pickups", c.FailedPickups).
		Msg("failed pickup recorded")
	return &c, nil
}

// ListBlockExpired returns IDs of consumers whose block ended at or before now.
func (r *consumerRepository) ListBlockExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM consumers
		WHERE blocked_until IS NOT NULL AND blocked_until <= $1 AND is_active
		ORDER BY blocked_until
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query expired blocks")
		return nil, fmt.Errorf("failed to query expired blocks: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan expired blocks")
		return nil, fmt.Errorf("failed to scan expired blocks: %w", err)
	}
	return ids, nil
}

// Unblock clears an expired block and resets the counter.
func (r *consumerRepository) Unblock(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE consumers
		SET blocked_until = NULL, failed_pickups = 0
		WHERE id = $1 AND blocked_until IS NOT NULL AND blocked_until <= $2
	`

	tag, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		r.logger.Error().Err(err).Str("consumer_id", id.String()).Msg("failed to unblock consumer")
		return false, fmt.Errorf("failed to unblock consumer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AddCredit adds goodwill credit to a consumer balance.
func (r *consumerRepository) AddCredit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE consumers SET credit_balance = credit_balance + $2 WHERE id = $1`

	if _, err := tx.Exec(ctx, query, id, amount); err != nil {
		r.logger.Error().Err(err).Str("consumer_id", id.String()).Msg("failed to add credit")
		return fmt.Errorf("failed to add credit: %w", err)
	}
	return nil
}

// UpdateProfile writes the non-nil fields of update.
func (r *consumerRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ConsumerProfileUpdate) (*model.Consumer, error) {
	query := `
		UPDATE consumers
		SET name = COALESCE($2, name)
		WHERE id = $1
		RETURNING ` + consumerColumns

	var c model.Consumer
	if err := scanConsumer(r.pool.QueryRow(ctx, query, id, update.Name), &c); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("consumer_id", id.String()).Msg("failed to update consumer profile")
		return nil, fmt.Errorf("failed to update consumer profile: %w", err)
	}
	return &c, nil
}
