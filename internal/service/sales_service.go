package service

import (
	"context"
	"fmt"
	"time"

	"surplus-market/internal/model"
	"surplus-market/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// salesService implements SalesService.
type salesService struct {
	transactions repository.TransactionRepository
	loc          *time.Location
	logger       zerolog.Logger
}

// NewSalesService creates a sales report service. Days are cut in loc.
func NewSalesService(transactions repository.TransactionRepository, loc *time.Location, logger zerolog.Logger) SalesService {
	return &salesService{
		transactions: transactions,
		loc:          loc,
		logger:       logger.With().Str("service", "sales").Logger(),
	}
}

// SalesHistory aggregates the restaurant's settled orders per local day.
func (s *salesService) SalesHistory(ctx context.Context, restaurantID uuid.UUID, start, end string) (*model.SalesHistory, error) {
	var rng model.SalesRange

	if start != "" {
		from, err := time.ParseInLocation(model.DateLayout, start, s.loc)
		if err != nil {
			return nil, model.NewInvalidDateError("startDate", start)
		}
		rng.From = &from
	}
	if end != "" {
		to, err := time.ParseInLocation(model.DateLayout, end, s.loc)
		if err != nil {
			return nil, model.NewInvalidDateError("endDate", end)
		}
		// End is inclusive.
		to = to.AddDate(0, 0, 1)
		rng.To = &to
	}
	if rng.From != nil && rng.To != nil && !rng.From.Before(*rng.To) {
		return nil, model.ErrInvalidDateRange
	}

	days, err := s.transactions.DailySales(ctx, restaurantID, rng, s.loc.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load sales history: %w", err)
	}

	history := model.NewSalesHistory(days)
	s.logger.Debug().
		Str("restaurant_id", restaurantID.String()).
		Int("days", len(history.Days)).
		Int("orders", history.Summary.TotalOrders).
		Msg("sales history computed")
	return &history, nil
}
