package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markettrack-api/internal/model"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestProduct_FirstObservation(t *testing.T) {
	res := Product(nil, &model.ProductSnapshot{ASIN: "B0TEST", Title: "Widget", Price: f64(9.99)})

	assert.True(t, res.Changed)
	assert.Equal(t, []string{InitialCreation}, res.Summary)
}

func TestProduct_NoChange(t *testing.T) {
	prev := &model.ProductChange{
		ASIN:            "B0TEST",
		Title:           "Widget",
		Price:           f64(9.99),
		BoughtLastMonth: i64(50),
		MainCategory:    "Tools",
	}

	t.Run("identical snapshot", func(t *testing.T) {
		cur := &model.ProductSnapshot{
			ASIN:            "B0TEST",
			Title:           "Widget",
			Price:           f64(9.99),
			BoughtLastMonth: i64(50),
			MainCategory:    "Tools",
		}
		res := Product(prev, cur)
		assert.False(t, res.Changed)
		assert.Empty(t, res.Summary)
		assert.Nil(t, res.Fields)
	})

	t.Run("missing values never count as changes", func(t *testing.T) {
		// A failed partial scrape must not generate history even
		// though every known field would be "overwritten" by nothing.
		res := Product(prev, &model.ProductSnapshot{ASIN: "B0TEST"})
		assert.False(t, res.Changed)
	})
}

func TestProduct_PriceChange(t *testing.T) {
	prev := &model.ProductChange{ASIN: "B0TEST", Title: "Widget", Price: f64(9.99)}
	cur := &model.ProductSnapshot{ASIN: "B0TEST", Title: "Widget", Price: f64(12.49)}

	res := Product(prev, cur)

	require.True(t, res.Changed)
	require.Len(t, res.Summary, 1)
	assert.Equal(t, "price changed: 9.99 → 12.49", res.Summary[0])
	assert.Equal(t, 12.49, res.Fields["price"])
}

func TestProduct_TitleSentinelOrderedFirst(t *testing.T) {
	prev := &model.ProductChange{ASIN: "B0TEST", Title: "Old long noisy title", Price: f64(10)}
	cur := &model.ProductSnapshot{ASIN: "B0TEST", Title: "New long noisy title", Price: f64(11)}

	res := Product(prev, cur)

	require.True(t, res.Changed)
	require.GreaterOrEqual(t, len(res.Summary), 2)
	assert.Equal(t, "title changed", res.Summary[0])
	assert.NotContains(t, res.Summary[0], "Old long")
}

func TestProduct_PreviouslyUnknownField(t *testing.T) {
	prev := &model.ProductChange{ASIN: "B0TEST", Title: "Widget"}
	cur := &model.ProductSnapshot{ASIN: "B0TEST", BoughtLastMonth: i64(30)}

	res := Product(prev, cur)

	require.True(t, res.Changed)
	assert.Equal(t, "bought_last_month changed: n/a → 30", res.Summary[0])
}

func TestMarket_FirstObservation(t *testing.T) {
	snap := &model.MarketSnapshot{
		Keyword:        "wireless mouse",
		TopSuggestions: []string{"mouse", "bluetooth mouse"},
		Products: []model.ProductListing{
			{ASIN: "A", Title: "Mouse A"},
			{ASIN: "B", Title: "Mouse B"},
		},
	}

	res := Market(nil, nil, snap)

	assert.True(t, res.Changed)
	assert.Equal(t, []string{InitialCreation}, res.Summary)
	assert.Equal(t, []string{"A", "B"}, res.Added)
	assert.Empty(t, res.Removed)
}

func TestMarket_MembershipDiff(t *testing.T) {
	prev := &model.MarketChange{TopSuggestions: []string{"mouse", "bluetooth mouse"}}
	snap := &model.MarketSnapshot{
		TopSuggestions: []string{"mouse", "bluetooth mouse"},
		Products: []model.ProductListing{
			{ASIN: "A"},
			{ASIN: "C"},
		},
	}

	res := Market(prev, []string{"A", "B"}, snap)

	require.True(t, res.Changed)
	assert.Equal(t, []string{"C"}, res.Added)
	assert.Equal(t, []string{"B"}, res.Removed)
	joined := strings.Join(res.Summary, SummarySeparator)
	assert.Contains(t, joined, "Neue Produkte: C")
	assert.Contains(t, joined, "Entfernte Produkte: B")
}

func TestMarket_SuggestionOrderIsNotAChange(t *testing.T) {
	prev := &model.MarketChange{TopSuggestions: []string{"mouse", "bluetooth mouse"}}
	snap := &model.MarketSnapshot{
		TopSuggestions: []string{"bluetooth mouse", "mouse"},
		Products:       []model.ProductListing{{ASIN: "A"}},
	}

	res := Market(prev, []string{"A"}, snap)

	assert.False(t, res.Changed)
	// The fresh order is still what would get stored.
	assert.Equal(t, []string{"bluetooth mouse", "mouse"}, res.Suggestions)
}

func TestMarket_SuggestionSetChange(t *testing.T) {
	prev := &model.MarketChange{TopSuggestions: []string{"mouse"}}
	snap := &model.MarketSnapshot{
		TopSuggestions: []string{"mouse", "gaming mouse"},
		Products:       []model.ProductListing{{ASIN: "A"}},
	}

	res := Market(prev, []string{"A"}, snap)

	assert.True(t, res.Changed)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Removed)
}

func TestMarket_AddedRemovedDisjoint(t *testing.T) {
	prev := &model.MarketChange{}
	snap := &model.MarketSnapshot{
		Products: []model.ProductListing{{ASIN: "A"}, {ASIN: "B"}},
	}

	res := Market(prev, []string{"B", "C"}, snap)

	for _, added := range res.Added {
		assert.NotContains(t, res.Removed, added)
	}
}
