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
)

const transactionColumns = `id, order_id, restaurant_id, amount, platform_fee, restaurant_amount,
	status, processed_at, paid_at, created_at`

// transactionRepository implements the TransactionRepository interface using PostgreSQL.
type transactionRepository struct {
	txStarter
}

// NewTransactionRepository creates a new PostgreSQL-backed transaction repository.
func NewTransactionRepository(pool *pgxpool.Pool, logger zerolog.Logger) TransactionRepository {
	return &transactionRepository{txStarter{
		pool:   pool,
		logger: logger.With().Str("repository", "transaction").Logger(),
	}}
}

func scanTransaction(row rowScanner, t *model.Transaction) error {
	return row.Scan(
		&t.ID,
		&t.OrderID,
		&t.RestaurantID,
		&t.Amount,
		&t.PlatformFee,
		&t.RestaurantAmount,
		&t.Status,
		&t.ProcessedAt,
		&t.PaidAt,
		&t.CreatedAt,
	)
}

// CreateIfAbsent inserts the transaction unless the order already has one.
func (r *transactionRepository) CreateIfAbsent(ctx context.Context, tx pgx.Tx, t *model.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (order_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		t.ID, t.OrderID, t.RestaurantID, t.Amount, t.PlatformFee, t.RestaurantAmount,
		t.Status, t.ProcessedAt, t.PaidAt, t.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", t.OrderID.String()).Msg("failed to create transaction")
		return false, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByOrderID retrieves an order's transaction.
func (r *transactionRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE order_id = $1`

	var t model.Transaction
	if err := scanTransaction(r.pool.QueryRow(ctx, query, orderID), &t); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query transaction")
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return &t, nil
}

// MarkProcessed advances a pending transaction to processed.
func (r *transactionRepository) MarkProcessed(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'processed', processed_at = $2
		WHERE order_id = $1 AND status = 'pending'
	`

	tag, err := tx.Exec(ctx, query, orderID, now)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to process transaction")
		return false, fmt.Errorf("failed to process transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListSettleable returns processed transactions processed before cutoff.
func (r *transactionRepository) ListSettleable(ctx context.Context, cutoff time.Time) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = 'processed' AND processed_at < $1
		ORDER BY processed_at
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query settleable transactions")
		return nil, fmt.Errorf("failed to query settleable transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := scanTransaction(rows, &t); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan transaction row")
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating transaction rows")
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// MarkPaid advances a processed transaction to paid.
func (r *transactionRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'paid', paid_at = $2
		WHERE id = $1 AND status = 'processed'
	`

	tag, err := tx.Exec(ctx, query, id, now)
	if err != nil {
		r.logger.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to mark transaction paid")
		return false, fmt.Errorf("failed to mark transaction paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DailySales aggregates a restaurant's transactions per local day in tz,
// newest first. Transactions of cancelled orders are excluded.
func (r *transactionRepository) DailySales(ctx context.Context, restaurantID uuid.UUID, rng model.SalesRange, tz string) ([]model.DailySales, error) {
	query := `
		SELECT to_char((t.created_at AT TIME ZONE $2)::date, 'YYYY-MM-DD') AS day,
			COUNT(*)::int,
			COALESCE(SUM(t.amount), 0),
			COALESCE(SUM(t.platform_fee), 0),
			COALESCE(SUM(t.restaurant_amount), 0)
		FROM transactions t
		JOIN orders o ON o.id = t.order_id
		WHERE t.restaurant_id = $1
			AND o.status <> 'CANCELLED'
			AND ($3::timestamptz IS NULL OR t.created_at >= $3)
			AND ($4::timestamptz IS NULL OR t.created_at < $4)
		GROUP BY day
		ORDER BY day DESC
	`

	rows, err := r.pool.Query(ctx, query, restaurantID, tz, rng.From, rng.To)
	if err != nil {
		r.logger.Error().Err(err).Str("restaurant_id", restaurantID.String()).Msg("failed to query daily sales")
		return nil, fmt.Errorf("failed to query daily sales: %w", err)
	}
	defer rows.Close()

	var days []model.DailySales
	for rows.Next() {
		var d model.DailySales
		if err := rows.Scan(&d.Date, &d.TotalOrders, &d.Revenue, &d.PlatformFee, &d.NetRevenue); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan daily sales row")
			return nil, fmt.Errorf("failed to scan daily sales: %w", err)
		}
		days = append(days, d)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating daily sales rows")
		return nil, fmt.Errorf("error iterating daily sales: %w", err)
	}

	return days, nil
}
