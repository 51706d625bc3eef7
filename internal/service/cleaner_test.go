package service

import (
	"context"
	"testing"
	"time"

	"markettrack-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryCleanerNormalizesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cleaner := NewSummaryCleaner(store, store)

	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN:          "A1",
		CapturedAt:    time.Now(),
		ChangeSummary: "price changed: 9.99 → 12.49",
	}))

	m, err := store.CreateMarket(ctx, "yoga mat")
	require.NoError(t, err)
	require.NoError(t, store.ApplyMarketUpdate(ctx, m.ID, &model.MarketChange{
		MarketID:      m.ID,
		CapturedAt:    time.Now(),
		ChangeSummary: "Neue Produkte: A1, B2 | Suchvorschläge geändert",
	}))

	updated, err := cleaner.CleanAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	productRows, err := store.ListProductChangeSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, productRows, 1)
	assert.Equal(t, "price changed 999 1249", productRows[0].Summary)

	marketRows, err := store.ListMarketChangeSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, marketRows, 1)
	assert.Equal(t, "Neue Produkte A1, B2, Suchvorschläge geändert", marketRows[0].Summary)

	// A second pass finds nothing left to normalize.
	updated, err = cleaner.CleanAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}
