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

// notificationRepository implements the NotificationRepository interface using PostgreSQL.
type notificationRepository struct {
	txStarter
}

// NewNotificationRepository creates a new PostgreSQL-backed notification repository.
func NewNotificationRepository(pool *pgxpool.Pool, logger zerolog.Logger) NotificationRepository {
	return &notificationRepository{txStarter{
		pool:   pool,
		logger: logger.With().Str("repository", "notification").Logger(),
	}}
}

// Create inserts a notification within tx, or directly when tx is nil.
func (r *notificationRepository) Create(ctx context.Context, tx pgx.Tx, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, recipient_type, type, title, message, related_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.on(tx).Exec(ctx, query,
		n.ID, n.RecipientID, n.RecipientType, n.Type, n.Title, n.Message, n.RelatedID, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("recipient_id", n.RecipientID.String()).
			Str("type", string(n.Type)).
			Msg("failed to create notification")
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// List returns a page of a recipient's notifications, newest first, and the total.
func (r *notificationRepository) List(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType, unreadOnly bool, page model.Page) ([]model.Notification, int, error) {
	page = page.Normalize()

	where := ` WHERE recipient_id = $1 AND recipient_type = $2`
	if unreadOnly {
		where += ` AND NOT is_read`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`+where, recipientID, recipientType).Scan(&total); err != nil {
		r.logger.Error().Err(err).Str("recipient_id", recipientID.String()).Msg("failed to count notifications")
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, recipient_id, recipient_type, type, title, message, related_id, is_read, created_at
		FROM notifications` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, recipientID, recipientType, page.Limit, page.Offset())
	if err != nil {
		r.logger.Error().Err(err).Str("recipient_id", recipientID.String()).Msg("failed to query notifications")
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var list []model.Notification
	for rows.Next() {
		var n model.Notification
		err := rows.Scan(&n.ID, &n.RecipientID, &n.RecipientType, &n.Type, &n.Title, &n.Message, &n.RelatedID, &n.IsRead, &n.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan notification row")
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating notification rows")
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}

	return list, total, nil
}

// CountUnread returns the number of unread notifications.
func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND recipient_type = $2 AND NOT is_read`

	var n int
	if err := r.pool.QueryRow(ctx, query, recipientID, recipientType).Scan(&n); err != nil {
		r.logger.Error().Err(err).Str("recipient_id", recipientID.String()).Msg("failed to count unread notifications")
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead marks one notification read.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID uuid.UUID, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		r.logger.Error().Err(err).Str("notification_id", id.String()).Msg("failed to mark notification read")
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkAllRead marks every notification of the recipient read.
func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND recipient_type = $2 AND NOT is_read`

	tag, err := r.pool.Exec(ctx, query, recipientID, recipientType)
	if err != nil {
		r.logger.Error().Err(err).Str("recipient_id", recipientID.String()).Msg("failed to mark notifications read")
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes one of the recipient's notifications.
func (r *notificationRepository) Delete(ctx context.Context, recipientID uuid.UUID, recipientType model.RecipientType, id uuid.UUID) (bool, error) {
	query := `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2 AND recipient_type = $3`

	tag, err := r.pool.Exec(ctx, query, id, recipientID, recipientType)
	if err != nil {
		r.logger.Error().Err(err).Str("notification_id", id.String()).Msg("failed to delete notification")
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
