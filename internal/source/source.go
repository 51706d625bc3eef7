package source

import (
	"context"
	"errors"

	"markettrack-api/internal/model"
)

// ErrUnavailable signals that the scraping collaborator could not
// produce a snapshot this run. The core treats it as "no update" for
// that one entity, never as "all fields became unknown", and never
// lets it abort a batch.
var ErrUnavailable = errors.New("snapshot source unavailable")

// Source is the contract with the external scraping collaborator. The
// extraction itself (browser automation, DOM parsing) lives outside
// this service; only the returned data shape matters here.
type Source interface {
	// MarketSnapshot fetches the search-result-page snapshot for a keyword.
	MarketSnapshot(ctx context.Context, keyword string) (*model.MarketSnapshot, error)

	// ProductSnapshot fetches the product-detail snapshot for an ASIN.
	ProductSnapshot(ctx context.Context, asin string) (*model.ProductSnapshot, error)
}
