package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/item-reservations/internal/domain"
)

func TestCatalogService_CreateItem(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      CreateItemInput
		wantErr error
	}{
		{name: "valid", in: CreateItemInput{Name: " Bike ", Price: decimal.RequireFromString("19.99")}},
		{name: "zero price", in: CreateItemInput{Name: "Free", Price: decimal.Zero}},
		{name: "blank name", in: CreateItemInput{Name: "  ", Price: decimal.Zero}, wantErr: domain.ErrItemNameRequired},
		{name: "negative price", in: CreateItemInput{Name: "Bad", Price: decimal.RequireFromString("-1")}, wantErr: domain.ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := env.catalog.CreateItem(ctx, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, item.ID)
			assert.False(t, item.Held())
			assert.True(t, item.CreatedAt.Equal(start))
		})
	}

	got, err := env.catalog.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bike", got[0].Name)
}

func TestCatalogService_QueueLength(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	item := env.newItem(t, "Bike")
	ctx := context.Background()

	_, err := env.reservations.Reserve(ctx, item.ID, newUser())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := env.reservations.JoinQueue(ctx, item.ID, newUser())
		require.NoError(t, err)
	}

	got, err := env.catalog.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QueueLength)

	list, err := env.catalog.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].QueueLength)
}

func TestCatalogService_UpdateItemKeepsHold(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	item := env.newItem(t, "Bike")
	alice := newUser()
	ctx := context.Background()

	_, err := env.reservations.Reserve(ctx, item.ID, alice)
	require.NoError(t, err)

	name := "Road bike"
	price := decimal.RequireFromString("250.00")
	got, err := env.catalog.UpdateItem(ctx, item.ID, UpdateItemInput{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Road bike", got.Name)
	assert.True(t, got.HeldBy(alice))

	stored := env.item(t, item.ID)
	assert.Equal(t, "Road bike", stored.Name)
	assert.True(t, stored.Price.Equal(price))
	assert.True(t, stored.HeldBy(alice))

	blank := ""
	_, err = env.catalog.UpdateItem(ctx, item.ID, UpdateItemInput{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrItemNameRequired)

	_, err = env.catalog.UpdateItem(ctx, uuid.NewString(), UpdateItemInput{Name: &name})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCatalogService_DeleteItem(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	item := env.newItem(t, "Bike")
	alice, bob := newUser(), newUser()
	ctx := context.Background()

	_, err := env.reservations.Reserve(ctx, item.ID, alice)
	require.NoError(t, err)
	_, err = env.reservations.JoinQueue(ctx, item.ID, bob)
	require.NoError(t, err)

	err = env.catalog.DeleteItem(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemHeld)

	_, err = env.reservations.Release(ctx, item.ID, alice)
	require.NoError(t, err)
	require.NoError(t, env.catalog.DeleteItem(ctx, item.ID))

	_, err = env.catalog.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	lengths, err := env.queue.QueueLengths(ctx)
	require.NoError(t, err)
	assert.Zero(t, lengths[item.ID])

	history, err := env.reservations.ListHistory(ctx, domain.HistoryFilter{ItemID: item.ID})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.UnknownName, history[0].Item.Name)
	assert.False(t, history[0].Item.Known)
}
