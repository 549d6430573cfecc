package repository

import (
	"context"
	"testing"
	"time"

	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := seedFixture(t, pool, 10, now.Add(3*time.Hour))
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder(f, 2, "ABCDE12345", now)
	insertOrder(t, repo, order)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "ABCDE12345", got.PickupCode)
	assert.Equal(t, model.OrderStatusPendingPayment, got.Status)
	assert.Equal(t, "45", got.TotalAmount.String())
	assert.Equal(t, "6.75", got.PlatformFee.String())
	assert.Equal(t, "38.25", got.RestaurantAmount.String())
	assert.True(t, got.PickupStartTime.Equal(f.offer.PickupStartTime))

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepository_CreateReportsCodeCollision(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := seedFixture(t, pool, 10, now.Add(3*time.Hour))
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	insertOrder(t, repo, newTestOrder(f, 1, "DUPLICATE1", now))

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	inserted, err := repo.Create(ctx, tx, newTestOrder(f, 1, "DUPLICATE1", now))
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestOrderRepository_GetByCodeIsRestaurantScoped(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := seedFixture(t, pool, 10, now.Add(3*time.Hour))
	other := seedFixture(t, pool, 10, now.Add(3*time.Hour))
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	insertOrder(t, repo, newTestOrder(f, 1, "SCOPED0001", now))

	got, err := repo.GetByCode(ctx, f.restaurant.ID, "SCOPED0001")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = repo.GetByCode(ctx, other.restaurant.ID, "SCOPED0001")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRepository_TransitionIf(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := seedFixture(t, pool, 10, now.Add(-3*time.Hour))
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder(f, 1, "NOSHOW0001", now)
	order.Status = model.OrderStatusConfirmed
	insertOrder(t, repo, order)

	candidates, err := repo.ListNoShowCandidates(ctx, now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	from := []model.OrderStatus{model.OrderStatusConfirmed, model.OrderStatusReadyForPickup}

	changed, err := repo.TransitionIf(ctx, nil, order.ID, from, model.OrderStatusNoShow, now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.TransitionIf(ctx, nil, order.ID, from, model.OrderStatusNoShow, now)
	require.NoError(t, err)
	assert.False(t, changed, "an overlapping sweep must not apply twice")
}

func TestOrderRepository_NoShowCandidatesSkipCancelledOffers(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)
	kept := seedFixture(t, pool, 5, now.Add(-3*time.Hour))
	withdrawn := seedFixture(t, pool, 5, now.Add(-3*time.Hour))
	orders := NewOrderRepository(pool, zerolog.Nop())
	offers := NewOfferRepository(pool, zerolog.Nop())
	ctx := context.Background()

	missed := newTestOrder(kept, 1, "MISSED0001", now)
	missed.Status = model.OrderStatusConfirmed
	insertOrder(t, orders, missed)

	late := newTestOrder(withdrawn, 1, "WITHDRAWN1", now)
	late.Status = model.OrderStatusConfirmed
	insertOrder(t, orders, late)

	tx, err := offers.BeginTx(ctx)
	require.NoError(t, err)
	changed, err := offers.Cancel(ctx, tx, withdrawn.offer.ID, now)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, tx.Commit(ctx))

	candidates, err := orders.ListNoShowCandidates(ctx, now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, missed.ID, candidates[0].ID)
}

func TestOfferRepository_GetForShare(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := seedFixture(t, pool, 5, now.Add(time.Hour))
	offers := NewOfferRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := offers.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	got, err := offers.GetForShare(ctx, tx, f.offer.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.OfferStatusActive, got.Status)

	missing, err := offers.GetForShare(ctx, tx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepository_ListByConsumer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Microsecond)
	f := seedFixture(t, pool, 10, now.Add(3*time.Hour))
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	for i, code := range []string{"LIST000001", "LIST000002", "LIST000003"} {
		insertOrder(t, repo, newTestOrder(f, 1, code, now.Add(time.Duration(i)*time.Second)))
	}

	orders, total, err := repo.ListByConsumer(ctx, f.consumer.ID, nil, model.Page{Number: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "LIST000003", orders[0].PickupCode)

	confirmed := model.OrderStatusConfirmed
	orders, total, err = repo.ListByConsumer(ctx, f.consumer.ID, &confirmed, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, orders)
}
