package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"markettrack-api/internal/model"
	"markettrack-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterAttachRecomputesRevenue(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	rev := NewRevenueService(store, store, store, 0)
	svc := NewClusterService(store, store, rev)

	m, err := store.CreateMarket(ctx, "yoga mat")
	require.NoError(t, err)
	store.marketChanges[m.ID] = []model.MarketChange{{
		MarketID: m.ID, CapturedAt: time.Now(), TotalRevenue: ptrFloat(250.5),
	}}

	cluster, err := svc.Create(ctx, 7, "fitness")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cluster.TotalRevenue)

	require.NoError(t, svc.AttachMarket(ctx, 7, cluster.ID, m.ID))

	got, err := svc.Get(ctx, 7, cluster.ID)
	require.NoError(t, err)
	assert.Equal(t, 250.5, got.TotalRevenue)

	// Re-attaching is a conflict.
	err = svc.AttachMarket(ctx, 7, cluster.ID, m.ID)
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	// Attaching an unknown market fails cleanly.
	err = svc.AttachMarket(ctx, 7, cluster.ID, 999)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestClusterOwnership(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	rev := NewRevenueService(store, store, store, 0)
	svc := NewClusterService(store, store, rev)

	cluster, err := svc.Create(ctx, 7, "mine")
	require.NoError(t, err)

	_, err = svc.Get(ctx, 8, cluster.ID)
	assert.True(t, errors.Is(err, ErrNotOwner))

	_, err = svc.Markets(ctx, 8, cluster.ID)
	assert.True(t, errors.Is(err, ErrNotOwner))

	mine, err := svc.ListForUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.ListForUser(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestClusterMarketsView(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	rev := NewRevenueService(store, store, store, 0)
	svc := NewClusterService(store, store, rev)

	m, err := store.CreateMarket(ctx, "yoga mat")
	require.NoError(t, err)
	store.marketChanges[m.ID] = []model.MarketChange{{
		MarketID:       m.ID,
		CapturedAt:     time.Now(),
		TotalRevenue:   ptrFloat(99.5),
		TopSuggestions: []string{"s"},
	}}

	cluster, err := svc.Create(ctx, 7, "fitness")
	require.NoError(t, err)
	require.NoError(t, svc.AttachMarket(ctx, 7, cluster.ID, m.ID))

	markets, err := svc.Markets(ctx, 7, cluster.ID)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "yoga mat", markets[0].Market.Keyword)
	require.NotNil(t, markets[0].RevenueTotal)
	assert.Equal(t, 99.5, *markets[0].RevenueTotal)
	assert.Equal(t, []string{"s"}, markets[0].TopSuggestions)
}
