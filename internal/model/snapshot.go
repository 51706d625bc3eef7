package model

// ProductSnapshot is the raw best-effort product-detail snapshot handed
// over by the external scraping collaborator. Nil pointers and empty
// strings mean "not observed this run" and never overwrite known state.
type ProductSnapshot struct {
	ASIN               string   `json:"asin"`
	Title              string   `json:"title"`
	Price              *float64 `json:"price"`
	BoughtLastMonth    *int64   `json:"blm"`
	MainCategory       string   `json:"main_category"`
	MainCategoryRank   *int64   `json:"main_category_rank"`
	SecondCategory     string   `json:"second_category"`
	SecondCategoryRank *int64   `json:"second_category_rank"`
	ReviewCount        *int64   `json:"review_count"`
	Rating             *float64 `json:"rating"`
	ImagePath          string   `json:"image_path"`
	Store              string   `json:"store"`
	Manufacturer       string   `json:"manufacturer"`
}

// ProductListing is one search-result entry inside a market snapshot.
type ProductListing struct {
	ASIN               string   `json:"asin"`
	Title              string   `json:"title"`
	Price              *float64 `json:"price"`
	ImagePath          string   `json:"image"`
	MainCategory       string   `json:"main_category,omitempty"`
	MainCategoryRank   *int64   `json:"main_category_rank,omitempty"`
	SecondCategory     string   `json:"second_category,omitempty"`
	SecondCategoryRank *int64   `json:"second_category_rank,omitempty"`
}

// MarketSnapshot is the raw search-result-page snapshot for one keyword.
type MarketSnapshot struct {
	Keyword        string           `json:"keyword"`
	TopSuggestions []string         `json:"top_search_suggestions"`
	Products       []ProductListing `json:"first_page_products"`
}

// ASINs returns the member product keys of the snapshot, deduplicated,
// in first-seen order.
func (s *MarketSnapshot) ASINs() []string {
	seen := make(map[string]struct{}, len(s.Products))
	asins := make([]string, 0, len(s.Products))
	for _, p := range s.Products {
		if p.ASIN == "" {
			continue
		}
		if _, ok := seen[p.ASIN]; ok {
			continue
		}
		seen[p.ASIN] = struct{}{}
		asins = append(asins, p.ASIN)
	}
	return asins
}
