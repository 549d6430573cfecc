// Package notify records domain notifications for consumers and restaurants.
package notify

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Notifier persists notifications. Delivery is handled elsewhere.
type Notifier struct {
	repo    repository.NotificationRepository
	deduper Deduper
	clock   clockwork.Clock
	logger  zerolog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(repo repository.NotificationRepository, deduper Deduper, clock clockwork.Clock, logger zerolog.Logger) *Notifier {
	return &Notifier{
		repo:    repo,
		deduper: deduper,
		clock:   clock,
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
}

func (n *Notifier) stamp(msg *model.Notification) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = n.clock.Now()
	}
}

// Notify writes msg within tx so it commits or rolls back with the transition
// that caused it. A nil tx writes directly.
func (n *Notifier) Notify(ctx context.Context, tx pgx.Tx, msg *model.Notification) error {
	n.stamp(msg)

	if err := n.repo.Create(ctx, tx, msg); err != nil {
		return err
	}

	n.logger.Debug().
		Str("recipient_id", msg.RecipientID.String()).
		Str("type", string(msg.Type)).
		Msg("notification recorded")
	return nil
}

// NotifyOnce writes msg unless a notification with the same key was written
// within ttl. Reports whether msg was written.
func (n *Notifier) NotifyOnce(ctx context.Context, key string, ttl time.Duration, msg *model.Notification) (bool, error) {
	claimed, err := n.deduper.Claim(ctx, key, ttl)
	if err != nil {
		return false, fmt.Errorf("failed to claim notification key %s: %w", key, err)
	}
	if !claimed {
		n.logger.Debug().Str("key", key).Msg("duplicate notification suppressed")
		return false, nil
	}

	if err := n.Notify(ctx, nil, msg); err != nil {
		if releaseErr := n.deduper.Release(ctx, key); releaseErr != nil {
			n.logger.Warn().Err(releaseErr).Str("key", key).Msg("failed to release notification key")
		}
		return false, err
	}
	return true, nil
}
