package service

import (
	"context"
	"testing"
	"time"

	"markettrack-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRevenue(t *testing.T) {
	assert.Nil(t, ProductRevenue(nil, nil))
	assert.Nil(t, ProductRevenue(ptrInt(100), nil))
	assert.Nil(t, ProductRevenue(nil, ptrFloat(9.99)))

	v := ProductRevenue(ptrInt(123), ptrFloat(9.99))
	require.NotNil(t, v)
	assert.Equal(t, 1228.77, *v)

	zero := ProductRevenue(ptrInt(0), ptrFloat(9.99))
	require.NotNil(t, zero)
	assert.Equal(t, 0.0, *zero)
}

func TestMarketRevenueUnknownVsZero(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	rev := NewRevenueService(store, store, store, 0)

	m, err := store.CreateMarket(ctx, "garden hose")
	require.NoError(t, err)
	store.members[m.ID] = []string{"A1", "B2"}
	require.NoError(t, store.EnsureProduct(ctx, "A1"))
	require.NoError(t, store.EnsureProduct(ctx, "B2"))

	// One member without history, one with unknown revenue: the market
	// total is unknown, not zero.
	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN: "B2", CapturedAt: time.Now().Add(-time.Hour),
	}))
	total, err := rev.MarketRevenue(ctx, m.ID, time.Now())
	require.NoError(t, err)
	assert.Nil(t, total)

	// A known zero revenue does contribute.
	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN: "B2", CapturedAt: time.Now().Add(-time.Minute), Revenue: ptrFloat(0),
	}))
	total, err = rev.MarketRevenue(ctx, m.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.Equal(t, 0.0, *total)
}

func TestMarketRevenueSumsAndFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	rev := NewRevenueService(store, store, store, 0)

	m, err := store.CreateMarket(ctx, "desk lamp")
	require.NoError(t, err)
	store.members[m.ID] = []string{"A1", "B2"}

	asOf := time.Now()
	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN: "A1", CapturedAt: asOf.Add(-2 * time.Hour), Revenue: ptrFloat(10.5),
	}))
	// B2's only record sits after asOf: the fallback still uses it.
	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN: "B2", CapturedAt: asOf.Add(time.Hour), Revenue: ptrFloat(20),
	}))

	total, err := rev.MarketRevenue(ctx, m.ID, asOf)
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.Equal(t, 30.5, *total)
}

func TestMarketRevenueMaxAgeCutoff(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	rev := NewRevenueService(store, store, store, time.Hour)

	m, err := store.CreateMarket(ctx, "desk lamp")
	require.NoError(t, err)
	store.members[m.ID] = []string{"A1", "B2"}

	asOf := time.Now()
	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN: "A1", CapturedAt: asOf.Add(-2 * time.Hour), Revenue: ptrFloat(10.5),
	}))
	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN: "B2", CapturedAt: asOf.Add(-30 * time.Minute), Revenue: ptrFloat(20),
	}))

	total, err := rev.MarketRevenue(ctx, m.ID, asOf)
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.Equal(t, 20.0, *total)
}

func TestRecomputeClusterRevenue(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	rev := NewRevenueService(store, store, store, 0)

	m1, err := store.CreateMarket(ctx, "one")
	require.NoError(t, err)
	m2, err := store.CreateMarket(ctx, "two")
	require.NoError(t, err)

	cluster, err := store.CreateCluster(ctx, 7, "home office")
	require.NoError(t, err)
	require.NoError(t, store.AttachMarket(ctx, cluster.ID, m1.ID))
	require.NoError(t, store.AttachMarket(ctx, cluster.ID, m2.ID))

	// m1 has a known total, m2's is unknown and counts as 0 here.
	store.marketChanges[m1.ID] = []model.MarketChange{{
		MarketID: m1.ID, CapturedAt: time.Now(), TotalRevenue: ptrFloat(100.25),
	}}
	store.marketChanges[m2.ID] = []model.MarketChange{{
		MarketID: m2.ID, CapturedAt: time.Now(),
	}}

	total, err := rev.RecomputeClusterRevenue(ctx, cluster.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.25, total)

	stored, err := store.GetCluster(ctx, cluster.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.25, stored.TotalRevenue)

	// Recomputing again changes nothing.
	total, err = rev.RecomputeClusterRevenue(ctx, cluster.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.25, total)
}
