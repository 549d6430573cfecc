package service

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"
	"surplus-market/internal/notify"
	"surplus-market/internal/repository"
	"surplus-market/internal/scheduler"

	"github.com/rs/zerolog"
)

// Sweep job names.
const (
	JobExpireOffers       = "expire-offers"
	JobNoShowSweep        = "no-show-sweep"
	JobPayoutSettlement   = "payout-settlement"
	JobPickupReminders    = "pickup-reminders"
	JobUnblockConsumers   = "unblock-consumers"
	JobPromoteReadyOrders = "promote-ready-orders"
)

// reminderDedupTTL keeps a reminder from being sent twice by overlapping runs.
const reminderDedupTTL = time.Hour

// SweepService runs the periodic reconciliation jobs. Every job is a function
// of (ctx, now) and processes items one by one with conditional updates, so a
// failed item is skipped and overlapping runs never apply twice.
type SweepService struct {
	offers       repository.OfferRepository
	orders       repository.OrderRepository
	transactions repository.TransactionRepository
	inventory    *Inventory
	penalties    PenaltyService
	notifier     Notifier
	location     *time.Location
	logger       zerolog.Logger
}

// NewSweepService creates a new sweep service. loc defines "today" for payouts.
func NewSweepService(
	offers repository.OfferRepository,
	orders repository.OrderRepository,
	transactions repository.TransactionRepository,
	inventory *Inventory,
	penalties PenaltyService,
	notifier Notifier,
	loc *time.Location,
	logger zerolog.Logger,
) *SweepService {
	if loc == nil {
		loc = time.UTC
	}
	return &SweepService{
		offers:       offers,
		orders:       orders,
		transactions: transactions,
		inventory:    inventory,
		penalties:    penalties,
		notifier:     notifier,
		location:     loc,
		logger:       logger.With().Str("service", "sweep").Logger(),
	}
}

// Jobs returns the sweep schedule.
func (s *SweepService) Jobs() []scheduler.Job {
	return []scheduler.Job{
		{Name: JobExpireOffers, Every: 5 * time.Minute, Run: s.ExpireOffers},
		{Name: JobNoShowSweep, Cron: "0 * * * *", Run: s.ProcessNoShows},
		{Name: JobPayoutSettlement, Cron: "0 2 * * *", Run: s.SettlePayouts},
		{Name: JobPickupReminders, Every: 10 * time.Minute, Run: s.SendPickupReminders},
		{Name: JobUnblockConsumers, Cron: "0 0 * * *", Run: s.UnblockConsumers},
		{Name: JobPromoteReadyOrders, Every: 5 * time.Minute, Run: s.PromoteReadyOrders},
	}
}

// ExpireOffers moves ACTIVE offers whose window ended to EXPIRED.
func (s *SweepService) ExpireOffers(ctx context.Context, now time.Time) error {
	ids, err := s.offers.ListEndedActive(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list ended offers: %w", err)
	}

	expired, failed := 0, 0
	for _, id := range ids {
		ok, err := s.offers.MarkExpired(ctx, id, now)
		if err != nil {
			failed++
			s.logger.Error().Err(err).Str("offer_id", id.String()).Msg("failed to expire offer")
			continue
		}
		if ok {
			expired++
		}
	}

	s.logger.Info().Str("job", JobExpireOffers).Int("expired", expired).Int("failed", failed).Msg("sweep finished")
	return nil
}

// ProcessNoShows marks confirmed orders whose window ended as NO_SHOW,
// returns their units to the offer and penalizes their consumers.
func (s *SweepService) ProcessNoShows(ctx context.Context, now time.Time) error {
	candidates, err := s.orders.ListNoShowCandidates(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list no-show candidates: %w", err)
	}

	processed, failed := 0, 0
	for i := range candidates {
		ok, err := s.processNoShow(ctx, &candidates[i], now)
		if err != nil {
			failed++
			s.logger.Error().Err(err).Str("order_id", candidates[i].ID.String()).Msg("failed to process no-show")
			continue
		}
		if ok {
			processed++
		}
	}

	s.logger.Info().Str("job", JobNoShowSweep).Int("no_shows", processed).Int("failed", failed).Msg("sweep finished")
	return nil
}

func (s *SweepService) processNoShow(ctx context.Context, order *model.Order, now time.Time) (_ bool, err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	moved, err := s.orders.TransitionIf(ctx, tx, order.ID,
		[]model.OrderStatus{model.OrderStatusConfirmed, model.OrderStatusReadyForPickup},
		model.OrderStatusNoShow, now)
	if err != nil {
		return false, err
	}
	if moved {
		order.Status = model.OrderStatusNoShow
		// The window has ended, so the offer stays EXPIRED after the release.
		if err = s.inventory.Release(ctx, tx, order.OfferID, order.Quantity, now); err != nil {
			return false, err
		}
		if _, err = s.penalties.RecordNoShow(ctx, tx, order, now); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return moved, nil
}

// startOfDay returns midnight of now's date in loc.
func startOfDay(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SettlePayouts pays out transactions processed before today.
func (s *SweepService) SettlePayouts(ctx context.Context, now time.Time) error {
	cutoff := startOfDay(now, s.location)
	settleable, err := s.transactions.ListSettleable(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list settleable transactions: %w", err)
	}

	paid, failed := 0, 0
	for i := range settleable {
		ok, err := s.settle(ctx, &settleable[i], now)
		if err != nil {
			failed++
			s.logger.Error().Err(err).Str("order_id", settleable[i].OrderID.String()).Msg("failed to settle payout")
			continue
		}
		if ok {
			paid++
		}
	}

	s.logger.Info().
		Str("job", JobPayoutSettlement).
		Time("cutoff", cutoff).
		Int("paid", paid).
		Int("failed", failed).
		Msg("sweep finished")
	return nil
}

func (s *SweepService) settle(ctx context.Context, t *model.Transaction, now time.Time) (_ bool, err error) {
	tx, err := s.transactions.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(ctx, tx, &err, s.logger)

	ok, err := s.transactions.MarkPaid(ctx, tx, t.ID, now)
	if err != nil {
		return false, err
	}
	if ok {
		if err = s.notifier.Notify(ctx, tx, notify.PayoutProcessed(t)); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ok, nil
}

// SendPickupReminders reminds consumers whose pickup window opens within the lead time.
func (s *SweepService) SendPickupReminders(ctx context.Context, now time.Time) error {
	upcoming, err := s.orders.ListStartingBetween(ctx, now, now.Add(model.ReminderLeadTime))
	if err != nil {
		return fmt.Errorf("failed to list upcoming pickups: %w", err)
	}

	sent, failed := 0, 0
	for i := range upcoming {
		order := &upcoming[i]
		ok, err := s.notifier.NotifyOnce(ctx, "reminder:"+order.ID.String(), reminderDedupTTL, notify.PickupReminder(order))
		if err != nil {
			failed++
			s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to send pickup reminder")
			continue
		}
		if ok {
			sent++
		}
	}

	s.logger.Info().Str("job", JobPickupReminders).Int("sent", sent).Int("failed", failed).Msg("sweep finished")
	return nil
}

// UnblockConsumers lifts blocks that have ended.
func (s *SweepService) UnblockConsumers(ctx context.Context, now time.Time) error {
	n, err := s.penalties.UnblockExpired(ctx, now)
	if err != nil {
		return err
	}
	s.logger.Info().Str("job", JobUnblockConsumers).Int("unblocked", n).Msg("sweep finished")
	return nil
}

// PromoteReadyOrders marks confirmed orders whose window has opened as READY_FOR_PICKUP.
func (s *SweepService) PromoteReadyOrders(ctx context.Context, now time.Time) error {
	n, err := s.orders.PromoteReady(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to promote ready orders: %w", err)
	}
	s.logger.Info().Str("job", JobPromoteReadyOrders).Int64("promoted", n).Msg("sweep finished")
	return nil
}
