package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/item-reservations/internal/clock"
	"github.com/cimillas/item-reservations/internal/domain"
	"github.com/cimillas/item-reservations/internal/storage/postgres"
	"github.com/cimillas/item-reservations/internal/testutil"
)

// pgEngineEnv runs the engine over the pgx stores. Unlike SQLite, Postgres
// lets transactions interleave, so these tests exercise the row and holder
// locks. They skip when TEST_DATABASE_URL is unreachable.
type pgEngineEnv struct {
	clock        *clock.Manual
	items        *postgres.ItemStore
	queue        *postgres.QueueStore
	history      *postgres.HistoryLedger
	reservations *ReservationService
	catalog      *CatalogService
}

func newPGEngineEnv(t *testing.T, opts ...ReservationOption) *pgEngineEnv {
	t.Helper()
	ctx := context.Background()
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	tx := postgres.NewTransactor(pool)
	env := &pgEngineEnv{
		clock:   clock.NewManual(start),
		items:   postgres.NewItemStore(pool),
		queue:   postgres.NewQueueStore(pool),
		history: postgres.NewHistoryLedger(pool),
	}
	env.reservations = NewReservationService(tx, env.items, env.queue, env.history, env.clock, opts...)
	env.catalog = NewCatalogService(tx, env.items, env.queue, env.clock)
	return env
}

func (e *pgEngineEnv) newItem(t *testing.T, name string) domain.Item {
	t.Helper()
	item, err := e.catalog.CreateItem(context.Background(), CreateItemInput{
		Name:  name,
		Price: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)
	return item
}

func (e *pgEngineEnv) actions(t *testing.T, itemID string) []domain.Action {
	t.Helper()
	entries, err := e.history.List(context.Background(), domain.HistoryFilter{ItemID: itemID})
	require.NoError(t, err)
	out := make([]domain.Action, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i].Record.Action)
	}
	return out
}

func TestPostgres_ConcurrentCallersOnOneItem(t *testing.T) {
	env := newPGEngineEnv(t)
	item := env.newItem(t, "Bike")

	const callers = 12
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.reservations.Reserve(context.Background(), item.ID, newUser())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrItemAlreadyHeld)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, []domain.Action{domain.ActionReserve}, env.actions(t, item.ID))

	got, err := env.items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.NoError(t, got.CheckHoldInvariant())
	assert.True(t, got.Held())
}

func TestPostgres_ConcurrentCallsRespectLimit(t *testing.T) {
	env := newPGEngineEnv(t, WithHoldLimit(3))
	alice := newUser()

	var ids []string
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		ids = append(ids, env.newItem(t, name).ID)
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.reservations.Reserve(context.Background(), id, alice)
		}(i, id)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrHoldLimitReached)
	}
	assert.Equal(t, 3, wins)

	held, err := env.items.CountHeldBy(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 3, held)
}

func TestPostgres_SweepHandsItemToQueue(t *testing.T) {
	env := newPGEngineEnv(t, WithHoldDuration(time.Minute), WithHoldLimit(1))
	ctx := context.Background()
	item := env.newItem(t, "Bike")
	other := env.newItem(t, "Tent")
	alice, bob, carol := newUser(), newUser(), newUser()

	_, err := env.reservations.Reserve(ctx, item.ID, alice)
	require.NoError(t, err)
	env.clock.Advance(30 * time.Second)
	_, err = env.reservations.Reserve(ctx, other.ID, carol)
	require.NoError(t, err)

	// carol is first in line but already at the limit.
	_, err = env.reservations.JoinQueue(ctx, item.ID, carol)
	require.NoError(t, err)
	_, err = env.reservations.JoinQueue(ctx, item.ID, bob)
	require.NoError(t, err)

	env.clock.Advance(30 * time.Second)
	sweepAt := env.clock.Now()

	report, err := NewSweeper(env.reservations, WithSweeperLogger(quietLogger())).SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reclaimed)
	assert.Equal(t, 1, report.Promoted)
	assert.Empty(t, report.Failures)

	got, err := env.items.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.NoError(t, got.CheckHoldInvariant())
	assert.True(t, got.HeldBy(bob))
	assert.True(t, got.HoldStartedAt.Equal(sweepAt))
	assert.True(t, got.HoldDeadline.Equal(sweepAt.Add(time.Minute)))
	assert.Equal(t, []domain.Action{
		domain.ActionReserve,
		domain.ActionReturnExpired,
		domain.ActionReserveFromQueue,
	}, env.actions(t, item.ID))

	pos, err := env.reservations.QueuePosition(ctx, item.ID, carol)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
}

func TestPostgres_ConcurrentSweepsReclaimOnce(t *testing.T) {
	env := newPGEngineEnv(t, WithHoldDuration(time.Minute))
	ctx := context.Background()
	item := env.newItem(t, "Bike")
	alice, bob := newUser(), newUser()

	_, err := env.reservations.Reserve(ctx, item.ID, alice)
	require.NoError(t, err)
	_, err = env.reservations.JoinQueue(ctx, item.ID, bob)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)

	const sweepers = 4
	reports := make([]SweepReport, sweepers)
	errs := make([]error, sweepers)
	var wg sync.WaitGroup
	for i := 0; i < sweepers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = NewSweeper(env.reservations, WithSweeperLogger(quietLogger())).SweepOnce(ctx)
		}(i)
	}
	wg.Wait()

	reclaimed, promoted := 0, 0
	for i := range reports {
		require.NoError(t, errs[i])
		assert.Empty(t, reports[i].Failures)
		reclaimed += reports[i].Reclaimed
		promoted += reports[i].Promoted
	}
	assert.Equal(t, 1, reclaimed)
	assert.Equal(t, 1, promoted)

	got, err := env.items.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.HeldBy(bob))
	assert.Len(t, env.actions(t, item.ID), 3)
}
