package model

import "time"

// Product is the mutable head record for one tracked product.
// All observed state lives in the append-only ProductChange history;
// the product row itself only tracks identity and scrape liveness.
type Product struct {
	ASIN          string     `json:"asin"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ProductChange is an immutable point-in-time snapshot of one product.
// A row is written only when the change detector found at least one
// materially changed field (or on first observation). Rows are never
// updated afterwards, except for summary normalization backfills.
type ProductChange struct {
	ID                 int64     `json:"id"`
	ASIN               string    `json:"asin"`
	CapturedAt         time.Time `json:"captured_at"`
	Title              string    `json:"title"`
	Price              *float64  `json:"price"`
	MainCategory       string    `json:"main_category,omitempty"`
	MainCategoryRank   *int64    `json:"main_category_rank,omitempty"`
	SecondCategory     string    `json:"second_category,omitempty"`
	SecondCategoryRank *int64    `json:"second_category_rank,omitempty"`
	BoughtLastMonth    *int64    `json:"bought_last_month"`
	Revenue            *float64  `json:"revenue"`
	ReviewCount        *int64    `json:"review_count,omitempty"`
	Rating             *float64  `json:"rating,omitempty"`
	ImagePath          string    `json:"image_path,omitempty"`
	Store              string    `json:"store,omitempty"`
	Manufacturer       string    `json:"manufacturer,omitempty"`
	ChangeSummary      string    `json:"change_summary"`
}

// ProductOverview is the compact per-product shape embedded in market
// summaries: the latest known state, or just the ASIN when a member
// product has never been scraped.
type ProductOverview struct {
	ASIN    string   `json:"asin"`
	Title   string   `json:"title,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Revenue *float64 `json:"revenue,omitempty"`
}
