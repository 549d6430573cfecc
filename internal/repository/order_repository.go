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

const orderSelect = `
	SELECT o.id, o.consumer_id, o.offer_id, o.restaurant_id, o.quantity,
		o.original_price, o.promotional_price, o.total_amount, o.platform_fee, o.restaurant_amount,
		o.payment_method, o.payment_status, o.payment_id, o.pickup_code, o.qr_code_url,
		o.status, o.pickup_time, o.created_at, o.updated_at,
		f.pickup_start_time, f.pickup_end_time
	FROM orders o
	JOIN offers f ON f.id = o.offer_id
`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	txStarter
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{txStarter{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}}
}

func scanOrder(row rowScanner, o *model.Order) error {
	return row.Scan(
		&o.ID,
		&o.ConsumerID,
		&o.OfferID,
		&o.RestaurantID,
		&o.Quantity,
		&o.OriginalPrice,
		&o.PromotionalPrice,
		&o.TotalAmount,
		&o.PlatformFee,
		&o.RestaurantAmount,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.PaymentID,
		&o.PickupCode,
		&o.QRCodeURL,
		&o.Status,
		&o.PickupTime,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.PickupStartTime,
		&o.PickupEndTime,
	)
}

// queryOrder runs a single-row order query. Returns nil when no row matched.
func (r *orderRepository) queryOrder(ctx context.Context, q querier, query string, args ...any) (*model.Order, error) {
	var o model.Order
	if err := scanOrder(q.QueryRow(ctx, query, args...), &o); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return &o, nil
}

// queryOrders runs a multi-row order query.
func (r *orderRepository) queryOrders(ctx context.Context, q querier, query string, args ...any) ([]model.Order, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// Create inserts an order within tx. Reports false when the pickup code is taken.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error) {
	query := `
		INSERT INTO orders (
			id, consumer_id, offer_id, restaurant_id, quantity,
			original_price, promotional_price, total_amount, platform_fee, restaurant_amount,
			payment_method, payment_status, payment_id, pickup_code, qr_code_url,
			status, pickup_time, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (pickup_code) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		order.ID, order.ConsumerID, order.OfferID, order.RestaurantID, order.Quantity,
		order.OriginalPrice, order.PromotionalPrice, order.TotalAmount, order.PlatformFee, order.RestaurantAmount,
		order.PaymentMethod, order.PaymentStatus, order.PaymentID, order.PickupCode, order.QRCodeURL,
		order.Status, order.PickupTime, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return false, fmt.Errorf("failed to create order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug().Str("order_id", order.ID.String()).Msg("pickup code collision")
		return false, nil
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return true, nil
}

// GetByID retrieves an order with its pickup window.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.queryOrder(ctx, r.pool, orderSelect+` WHERE o.id = $1`, id)
}

// GetForUpdate locks and retrieves an order.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return r.queryOrder(ctx, tx, orderSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id)
}

// GetByCode retrieves a restaurant's order by pickup code.
func (r *orderRepository) GetByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error) {
	return r.queryOrder(ctx, r.pool, orderSelect+` WHERE o.restaurant_id = $1 AND o.pickup_code = $2`, restaurantID, code)
}

// GetByCodeForUpdate locks and retrieves a restaurant's order by pickup code.
func (r *orderRepository) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID, code string) (*model.Order, error) {
	return r.queryOrder(ctx, tx, orderSelect+` WHERE o.restaurant_id = $1 AND o.pickup_code = $2 FOR UPDATE OF o`, restaurantID, code)
}

// FindIDByPaymentID resolves an order from a gateway payment ID.
func (r *orderRepository) FindIDByPaymentID(ctx context.Context, paymentID string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM orders WHERE payment_id = $1`, paymentID).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_id", paymentID).Msg("failed to find order by payment")
		return nil, fmt.Errorf("failed to find order by payment: %w", err)
	}
	return &id, nil
}

// UpdateState writes status and payment status of a locked order.
func (r *orderRepository) UpdateState(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus, payment model.PaymentStatus, now time.Time) error {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, updated_at = $4
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, id, status, payment, now); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update order state")
		return fmt.Errorf("failed to update order state: %w", err)
	}
	return nil
}

// TransitionIf moves an order to status only when it is currently in one of from.
func (r *orderRepository) TransitionIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, from []model.OrderStatus, to model.OrderStatus, now time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
	`

	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}

	tag, err := r.on(tx).Exec(ctx, query, id, to, now, fromStrings)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("status", string(to)).
			Msg("failed to transition order")
		return false, fmt.Errorf("failed to transition order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted stamps the pickup time and completes a locked order.
func (r *orderRepository) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE orders
		SET status = 'COMPLETED', pickup_time = $2, updated_at = $2
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, query, id, now); err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to complete order")
		return fmt.Errorf("failed to complete order: %w", err)
	}
	return nil
}

// SetPaymentID records the gateway payment ID if none is stored yet.
func (r *orderRepository) SetPaymentID(ctx context.Context, tx pgx.Tx, id uuid.UUID, paymentID string) error {
	query := `
		UPDATE orders
		SET payment_id = $2
		WHERE id = $1 AND payment_id IS NULL
	`

	if _, err := r.on(tx).Exec(ctx, query, id, paymentID); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("payment_id", paymentID).
			Msg("failed to store payment id")
		return fmt.Errorf("failed to store payment id: %w", err)
	}
	return nil
}

// SetQRCodeURL records where the pickup artifact is stored.
func (r *orderRepository) SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE orders SET qr_code_url = $2 WHERE id = $1`, id, url); err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to store qr code url")
		return fmt.Errorf("failed to store qr code url: %w", err)
	}
	return nil
}

// ListByConsumer returns a page of a consumer's orders and the total count.
func (r *orderRepository) ListByConsumer(ctx context.Context, consumerID uuid.UUID, status *model.OrderStatus, page model.Page) ([]model.Order, int, error) {
	page = page.Normalize()

	where := ` WHERE o.consumer_id = $1`
	args := []any{consumerID}
	if status != nil {
		where += ` AND o.status = $2`
		args = append(args, *status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Str("consumer_id", consumerID.String()).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	n := len(args)
	args = append(args, page.Limit, page.Offset())
	query := orderSelect + where + fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)

	orders, err := r.queryOrders(ctx, r.pool, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListActiveByOfferForUpdate locks CONFIRMED and READY_FOR_PICKUP orders of an offer.
func (r *orderRepository) ListActiveByOfferForUpdate(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) ([]model.Order, error) {
	query := orderSelect + `
		WHERE o.offer_id = $1 AND o.status IN ('CONFIRMED', 'READY_FOR_PICKUP')
		ORDER BY o.created_at
		FOR UPDATE OF o
	`
	return r.queryOrders(ctx, tx, query, offerID)
}

// ListNoShowCandidates returns CONFIRMED and READY_FOR_PICKUP orders whose
// window ended before now, skipping orders of cancelled offers.
func (r *orderRepository) ListNoShowCandidates(ctx context.Context, now time.Time) ([]model.Order, error) {
	query := orderSelect + `
		WHERE o.status IN ('CONFIRMED', 'READY_FOR_PICKUP')
			AND f.pickup_end_time < $1
			AND f.status <> 'CANCELLED'
		ORDER BY f.pickup_end_time
	`
	return r.queryOrders(ctx, r.pool, query, now)
}

// ListStartingBetween returns CONFIRMED orders whose window starts in [from, to].
func (r *orderRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	query := orderSelect + `
		WHERE o.status = 'CONFIRMED' AND f.pickup_start_time >= $1 AND f.pickup_start_time <= $2
		ORDER BY f.pickup_start_time
	`
	return r.queryOrders(ctx, r.pool, query, from, to)
}

// PromoteReady moves CONFIRMED orders whose window is open to READY_FOR_PICKUP.
func (r *orderRepository) PromoteReady(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE orders o
		SET status = 'READY_FOR_PICKUP', updated_at = $1
		FROM offers f
		WHERE f.id = o.offer_id
			AND o.status = 'CONFIRMED'
			AND f.pickup_start_time <= $1
			AND f.pickup_end_time >= $1
	`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to promote ready orders")
		return 0, fmt.Errorf("failed to promote ready orders: %w", err)
	}
	return tag.RowsAffected(), nil
}
