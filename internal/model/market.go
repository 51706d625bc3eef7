package model

import "time"

// Market is a tracked search keyword owning a live set of member
// products and an append-only MarketChange history.
type Market struct {
	ID        int64     `json:"id"`
	Keyword   string    `json:"keyword"`
	CreatedAt time.Time `json:"created_at"`
}

// MarketChange is an immutable snapshot of a market's membership and
// aggregate state at a point in time. AddedASINs and RemovedASINs are
// always disjoint. TotalRevenue is nil when no member product had any
// known revenue at capture time (unknown, as opposed to zero).
type MarketChange struct {
	ID             int64     `json:"id"`
	MarketID       int64     `json:"market_id"`
	CapturedAt     time.Time `json:"captured_at"`
	TotalRevenue   *float64  `json:"total_revenue"`
	AddedASINs     []string  `json:"added_asins"`
	RemovedASINs   []string  `json:"removed_asins"`
	TopSuggestions []string  `json:"top_suggestions"`
	ChangeSummary  string    `json:"change_summary"`
}

// MarketSummary is the presentation shape for one market: the latest
// aggregate state plus an overview of every current member product.
type MarketSummary struct {
	Market         Market            `json:"market"`
	RevenueTotal   *float64          `json:"revenue_total"`
	TopSuggestions []string          `json:"top_suggestions"`
	Products       []ProductOverview `json:"products"`
}

// MarketCluster is a user-owned named grouping of markets.
// TotalRevenue is a recomputed cache over the member markets' latest
// MarketChange totals, never a source of truth.
type MarketCluster struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	TotalRevenue float64   `json:"total_revenue"`
	CreatedAt    time.Time `json:"created_at"`
}
