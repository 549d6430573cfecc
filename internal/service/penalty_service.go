package service

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"
	"surplus-market/internal/notify"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// penaltyService implements PenaltyService.
type penaltyService struct {
	consumers repository.ConsumerRepository
	notifier  Notifier
	logger    zerolog.Logger
}

// NewPenaltyService creates a new penalty service.
func NewPenaltyService(consumers repository.ConsumerRepository, notifier Notifier, logger zerolog.Logger) PenaltyService {
	return &penaltyService{
		consumers: consumers,
		notifier:  notifier,
		logger:    logger.With().Str("service", "penalty").Logger(),
	}
}

// CheckEligibility rejects unknown, inactive and blocked consumers.
func (s *penaltyService) CheckEligibility(ctx context.Context, consumerID uuid.UUID, now time.Time) (*model.Consumer, error) {
	consumer, err := s.consumers.GetByID(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check consumer: %w", err)
	}
	if consumer == nil || !consumer.IsActive {
		return nil, model.ErrConsumerNotFound
	}
	if consumer.IsBlocked(now) {
		return nil, model.NewBlockedConsumerError(*consumer.BlockedUntil)
	}
	return consumer, nil
}

// RecordNoShow counts the missed pickup of order and notifies the consumer.
func (s *penaltyService) RecordNoShow(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) (*model.Consumer, error) {
	consumer, err := s.consumers.RecordFailedPickup(ctx, tx, order.ConsumerID, model.MaxFailedPickups, now.Add(model.BlockDuration))
	if err != nil {
		return nil, err
	}
	if consumer == nil {
		return nil, model.ErrConsumerNotFound
	}

	msg := notify.NoShowWarning(order, consumer.FailedPickups, model.MaxFailedPickups)
	if consumer.FailedPickups >= model.MaxFailedPickups && consumer.BlockedUntil != nil {
		msg = notify.AccountBlocked(order, *consumer.BlockedUntil)
		s.logger.Info().
			Str("consumer_id", consumer.ID.String()).
			Time("blocked_until", *consumer.BlockedUntil).
			Msg("consumer blocked")
	}

	if err := s.notifier.Notify(ctx, tx, msg); err != nil {
		return nil, fmt.Errorf("failed to notify consumer: %w", err)
	}
	return consumer, nil
}

// UnblockExpired lifts every block that ended at or before now.
func (s *penaltyService) UnblockExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.consumers.ListBlockExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired blocks: %w", err)
	}

	unblocked := 0
	for _, id := range ids {
		ok, err := s.consumers.Unblock(ctx, id, now)
		if err != nil {
			s.logger.Error().Err(err).Str("consumer_id", id.String()).Msg("failed to unblock consumer")
			continue
		}
		if ok {
			unblocked++
		}
	}
	return unblocked, nil
}
