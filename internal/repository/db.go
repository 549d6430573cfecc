package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// txStarter implements TxBeginner for every repository.
type txStarter struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// BeginTx starts a new database transaction.
func (s txStarter) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// on returns tx when set, otherwise the pool.
func (s txStarter) on(tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return s.pool
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
