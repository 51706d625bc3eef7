package service

import (
	"context"
	"testing"
	"time"

	"markettrack-api/internal/detect"
	"markettrack-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMarketFixture() (*fakeStore, *fakeSource, *MarketService) {
	store := newFakeStore()
	src := newFakeSource()
	rev := NewRevenueService(store, store, store, 0)
	svc := NewMarketService(store, store, store, src, rev)
	return store, src, svc
}

func TestMarketUpdateLifecycle(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newMarketFixture()

	m, err := svc.Register(ctx, "yoga mat")
	require.NoError(t, err)

	src.marketSnaps["yoga mat"] = &model.MarketSnapshot{
		Keyword:        "yoga mat",
		TopSuggestions: []string{"yoga mat thick"},
		Products:       []model.ProductListing{{ASIN: "A1"}, {ASIN: "B2"}},
	}

	// First scrape bootstraps the membership.
	run, err := svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)

	changes, err := store.ListMarketChanges(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, []string{"A1", "B2"}, changes[0].AddedASINs)
	assert.Empty(t, changes[0].RemovedASINs)
	assert.Nil(t, changes[0].TotalRevenue)
	assert.Contains(t, changes[0].ChangeSummary, detect.InitialCreation)

	members, err := store.ListMemberASINs(ctx, m.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "B2"}, members)

	// Second scrape drifts the membership: one in, one out.
	src.marketSnaps["yoga mat"].Products = []model.ProductListing{{ASIN: "A1"}, {ASIN: "C3"}}

	run, err = svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)

	changes, err = store.ListMarketChanges(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, []string{"C3"}, changes[1].AddedASINs)
	assert.Equal(t, []string{"B2"}, changes[1].RemovedASINs)
	assert.Contains(t, changes[1].ChangeSummary, "Neue Produkte: C3")
	assert.Contains(t, changes[1].ChangeSummary, "Entfernte Produkte: B2")

	members, err = store.ListMemberASINs(ctx, m.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "C3"}, members)

	// An identical snapshot is a no-op: zero new records.
	run, err = svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Updated)
	assert.Equal(t, 1, run.Unchanged)

	changes, err = store.ListMarketChanges(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestMarketSuggestionOrderDoesNotTrigger(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newMarketFixture()

	m, err := svc.Register(ctx, "yoga mat")
	require.NoError(t, err)

	src.marketSnaps["yoga mat"] = &model.MarketSnapshot{
		Keyword:        "yoga mat",
		TopSuggestions: []string{"a", "b"},
		Products:       []model.ProductListing{{ASIN: "A1"}},
	}
	_, err = svc.UpdateAll(ctx)
	require.NoError(t, err)

	// Same suggestion set in a different order.
	src.marketSnaps["yoga mat"].TopSuggestions = []string{"b", "a"}
	run, err := svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Unchanged)

	// A genuinely different set does trigger.
	src.marketSnaps["yoga mat"].TopSuggestions = []string{"b", "c"}
	run, err = svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)

	changes, err := store.ListMarketChanges(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Contains(t, changes[1].ChangeSummary, "Suchvorschläge geändert")
	assert.Equal(t, []string{"b", "c"}, changes[1].TopSuggestions)
}

func TestMarketUpdateFailureIsolation(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newMarketFixture()

	_, err := svc.Register(ctx, "works")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "broken")
	require.NoError(t, err)

	src.marketSnaps["works"] = &model.MarketSnapshot{
		Keyword:  "works",
		Products: []model.ProductListing{{ASIN: "A1"}},
	}

	run, err := svc.UpdateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)
	assert.Equal(t, 1, run.Failed)

	// The run summary is persisted for auditing.
	runs, total, err := store.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, runs, 1)
	assert.Equal(t, "markets", runs[0].Kind)
	assert.Equal(t, 1, runs[0].Failed)
}

func TestMarketSkippedWhenMembersNeverScraped(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newMarketFixture()

	m, err := svc.Register(ctx, "dormant")
	require.NoError(t, err)
	src.marketSnaps["dormant"] = &model.MarketSnapshot{Keyword: "dormant"}

	// Seed history and members whose products were never scraped.
	store.marketChanges[m.ID] = []model.MarketChange{{
		MarketID: m.ID, CapturedAt: time.Now().Add(-24 * time.Hour),
	}}
	store.members[m.ID] = []string{"A1"}
	store.products["A1"] = &model.Product{ASIN: "A1"}

	result, err := svc.UpdateOne(ctx, "dormant")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipped, result.Outcome)
	assert.Equal(t, "no scraped products", result.Reason)

	changes, err := store.ListMarketChanges(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestMarketRevenueChangeWritesRecord(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newMarketFixture()

	m, err := svc.Register(ctx, "yoga mat")
	require.NoError(t, err)

	// Stable membership and suggestions, but the member product now has
	// known revenue where the last record had none.
	scraped := time.Now().Add(-time.Hour)
	store.members[m.ID] = []string{"A1"}
	store.products["A1"] = &model.Product{ASIN: "A1", LastScrapedAt: &scraped}
	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN: "A1", CapturedAt: scraped, Revenue: ptrFloat(100),
	}))
	store.marketChanges[m.ID] = []model.MarketChange{{
		MarketID:       m.ID,
		CapturedAt:     time.Now().Add(-24 * time.Hour),
		TopSuggestions: []string{"s"},
	}}
	src.marketSnaps["yoga mat"] = &model.MarketSnapshot{
		Keyword:        "yoga mat",
		TopSuggestions: []string{"s"},
		Products:       []model.ProductListing{{ASIN: "A1"}},
	}

	result, err := svc.UpdateOne(ctx, "yoga mat")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeUpdated, result.Outcome)

	latest, err := store.LatestMarketChange(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, latest.TotalRevenue)
	assert.Equal(t, 100.0, *latest.TotalRevenue)
	assert.Equal(t, "Umsatz geändert: n/a → 100.00", latest.ChangeSummary)
}

func TestMarketSummaryView(t *testing.T) {
	ctx := context.Background()
	store, src, svc := newMarketFixture()

	m, err := svc.Register(ctx, "yoga mat")
	require.NoError(t, err)
	src.marketSnaps["yoga mat"] = &model.MarketSnapshot{
		Keyword:        "yoga mat",
		TopSuggestions: []string{"s"},
		Products:       []model.ProductListing{{ASIN: "A1"}},
	}
	_, err = svc.UpdateAll(ctx)
	require.NoError(t, err)

	require.NoError(t, store.AppendProductChange(ctx, &model.ProductChange{
		ASIN: "A1", CapturedAt: time.Now(), Title: "Mat", Price: ptrFloat(19.99), Revenue: ptrFloat(500),
	}))

	summary, err := svc.Summary(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "yoga mat", summary.Market.Keyword)
	assert.Equal(t, []string{"s"}, summary.TopSuggestions)
	require.Len(t, summary.Products, 1)
	assert.Equal(t, "Mat", summary.Products[0].Title)
	require.NotNil(t, summary.Products[0].Revenue)
	assert.Equal(t, 500.0, *summary.Products[0].Revenue)
}
