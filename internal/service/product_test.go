package service

import (
	"context"
	"errors"
	"testing"

	"markettrack-api/internal/detect"
	"markettrack-api/internal/model"
	"markettrack-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductFixture() (*fakeStore, *fakeSource, *ProductService) {
	store := newFakeStore()
	src := newFakeSource()
	svc := NewProductService(store, store, src)
	return store, src, svc
}

func TestProductUpdateLifecycle(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newProductFixture()

	require.NoError(t, store.EnsureProduct(ctx, "A1"))
	src.productSnaps["A1"] = &model.ProductSnapshot{
		ASIN:            "A1",
		Title:           "Yoga Mat",
		Price:           ptrFloat(9.99),
		BoughtLastMonth: ptrInt(100),
		Rating:          ptrFloat(4.5),
	}

	// First observation writes the initial record.
	run, err := svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)

	changes, err := store.ListProductChanges(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, detect.InitialCreation, changes[0].ChangeSummary)
	require.NotNil(t, changes[0].Revenue)
	assert.Equal(t, 999.0, *changes[0].Revenue)

	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.NotNil(t, p.LastScrapedAt)

	// An identical snapshot is a no-op.
	run, err = svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Unchanged)
	changes, err = store.ListProductChanges(ctx, "A1")
	require.NoError(t, err)
	assert.Len(t, changes, 1)

	// A price move writes a new record with recomputed revenue.
	src.productSnaps["A1"].Price = ptrFloat(12.49)
	run, err = svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)

	changes, err = store.ListProductChanges(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Contains(t, changes[1].ChangeSummary, "price changed: 9.99 → 12.49")
	require.NotNil(t, changes[1].Revenue)
	assert.Equal(t, 1249.0, *changes[1].Revenue)
}

func TestProductMissingFieldCarriesForward(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newProductFixture()

	require.NoError(t, store.EnsureProduct(ctx, "A1"))
	src.productSnaps["A1"] = &model.ProductSnapshot{
		ASIN:            "A1",
		Title:           "Yoga Mat",
		Price:           ptrFloat(9.99),
		BoughtLastMonth: ptrInt(100),
		Rating:          ptrFloat(4.5),
	}
	_, err := svc.UpdateAll(ctx)
	require.NoError(t, err)

	// The next scrape misses the rating but sees more sales. The
	// unobserved rating must neither count as a change nor be dropped
	// from the new record.
	src.productSnaps["A1"] = &model.ProductSnapshot{
		ASIN:            "A1",
		Title:           "Yoga Mat",
		Price:           ptrFloat(9.99),
		BoughtLastMonth: ptrInt(200),
	}
	run, err := svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)

	changes, err := store.ListProductChanges(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Contains(t, changes[1].ChangeSummary, "bought_last_month changed: 100 → 200")
	assert.NotContains(t, changes[1].ChangeSummary, "rating")
	require.NotNil(t, changes[1].Rating)
	assert.Equal(t, 4.5, *changes[1].Rating)
	require.NotNil(t, changes[1].Revenue)
	assert.Equal(t, 1998.0, *changes[1].Revenue)
}

func TestProductIncompleteSnapshotSkipped(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newProductFixture()

	require.NoError(t, store.EnsureProduct(ctx, "A1"))
	src.productSnaps["A1"] = &model.ProductSnapshot{ASIN: "A1", Title: "Yoga Mat"}

	run, err := svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, "incomplete snapshot", run.Results[0].Reason)

	changes, err := store.ListProductChanges(ctx, "A1")
	require.NoError(t, err)
	assert.Empty(t, changes)

	// A skipped scrape is not a successful scrape.
	p, err := store.GetProduct(ctx, "A1")
	require.NoError(t, err)
	assert.Nil(t, p.LastScrapedAt)
}

func TestProductSourceFailureIsolated(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newProductFixture()

	require.NoError(t, store.EnsureProduct(ctx, "gone"))
	require.NoError(t, store.EnsureProduct(ctx, "fine"))
	src.productSnaps["fine"] = &model.ProductSnapshot{
		ASIN: "fine", Title: "Fine", Price: ptrFloat(5),
	}

	run, err := svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)
	assert.Equal(t, 1, run.Failed)
}

func TestProductUpdateOneUnknown(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newProductFixture()

	_, err := svc.UpdateOne(ctx, "nope")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}
