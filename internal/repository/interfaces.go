package repository

import (
	"context"
	"errors"
	"time"

	"markettrack-api/internal/model"
)

// Sentinel errors shared by every backend.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness invariant was violated,
	// e.g. a second watch-list entry for the same (user, asin) pair.
	ErrDuplicate = errors.New("duplicate entry")
)

// SummaryRow is one stored change summary, addressed by row id, for
// the offline normalization backfill.
type SummaryRow struct {
	ID      int64
	Summary string
}

// ProductRepository defines product and product-history data access.
// Change records are append-only and ordered by captured_at.
type ProductRepository interface {
	// EnsureProduct creates the product head row if it does not exist.
	EnsureProduct(ctx context.Context, asin string) error

	// GetProduct retrieves one product head row.
	GetProduct(ctx context.Context, asin string) (*model.Product, error)

	// ListProductASINs returns every known product key.
	ListProductASINs(ctx context.Context) ([]string, error)

	// TouchLastScraped records a successful scrape of the product.
	TouchLastScraped(ctx context.Context, asin string, at time.Time) error

	// AppendProductChange appends one immutable change record.
	AppendProductChange(ctx context.Context, change *model.ProductChange) error

	// LatestProductChange returns the newest change record for a product.
	LatestProductChange(ctx context.Context, asin string) (*model.ProductChange, error)

	// LatestProductChangeBefore returns the newest change record
	// captured strictly before the given time.
	LatestProductChangeBefore(ctx context.Context, asin string, before time.Time) (*model.ProductChange, error)

	// ListProductChanges returns the full history, ascending by captured_at.
	ListProductChanges(ctx context.Context, asin string) ([]model.ProductChange, error)

	// ListProductChangeSummaries and UpdateProductChangeSummary exist
	// only for the data-cleaning backfill; nothing else mutates history.
	ListProductChangeSummaries(ctx context.Context) ([]SummaryRow, error)
	UpdateProductChangeSummary(ctx context.Context, id int64, summary string) error
}

// MarketRepository defines market, membership and market-history access.
type MarketRepository interface {
	// CreateMarket registers a keyword. Returns ErrDuplicate when taken.
	CreateMarket(ctx context.Context, keyword string) (*model.Market, error)

	// GetMarket retrieves one market by id.
	GetMarket(ctx context.Context, id int64) (*model.Market, error)

	// GetMarketByKeyword retrieves one market by its unique keyword.
	GetMarketByKeyword(ctx context.Context, keyword string) (*model.Market, error)

	// ListMarkets returns all markets.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// ListMemberASINs returns the live member product keys of a market.
	ListMemberASINs(ctx context.Context, marketID int64) ([]string, error)

	// CountScrapedMembers counts member products that have ever been scraped.
	CountScrapedMembers(ctx context.Context, marketID int64) (int64, error)

	// LatestMarketChange returns the newest change record for a market.
	LatestMarketChange(ctx context.Context, marketID int64) (*model.MarketChange, error)

	// ListMarketChanges returns the full history, ascending by captured_at.
	ListMarketChanges(ctx context.Context, marketID int64) ([]model.MarketChange, error)

	// ApplyMarketUpdate atomically appends the change record, attaches
	// the added member products (creating head rows as needed) and
	// detaches the removed ones, all in one transaction. Historical
	// product rows and change records are never deleted by a detach.
	ApplyMarketUpdate(ctx context.Context, marketID int64, change *model.MarketChange) error

	// ListMarketChangeSummaries and UpdateMarketChangeSummary serve the
	// data-cleaning backfill.
	ListMarketChangeSummaries(ctx context.Context) ([]SummaryRow, error)
	UpdateMarketChangeSummary(ctx context.Context, id int64, summary string) error
}

// ClusterRepository defines market-cluster access. The cached
// total_revenue column is written only by revenue recomputation.
type ClusterRepository interface {
	// CreateCluster creates a named cluster owned by the given user.
	CreateCluster(ctx context.Context, userID int64, name string) (*model.MarketCluster, error)

	// GetCluster retrieves one cluster by id.
	GetCluster(ctx context.Context, id int64) (*model.MarketCluster, error)

	// ListClustersByUser returns the clusters owned by one user.
	ListClustersByUser(ctx context.Context, userID int64) ([]model.MarketCluster, error)

	// ListAllClusters returns every cluster, for the recompute pass.
	ListAllClusters(ctx context.Context) ([]model.MarketCluster, error)

	// AttachMarket adds a market to a cluster. Returns ErrDuplicate
	// when the market is already attached.
	AttachMarket(ctx context.Context, clusterID, marketID int64) error

	// ListClusterMarketIDs returns the member market ids of a cluster.
	ListClusterMarketIDs(ctx context.Context, clusterID int64) ([]int64, error)

	// ListClusterASINs returns every distinct product key currently
	// belonging to any market inside the cluster.
	ListClusterASINs(ctx context.Context, clusterID int64) ([]string, error)

	// SetClusterRevenue overwrites the cached revenue total.
	SetClusterRevenue(ctx context.Context, clusterID int64, total float64) error
}

// WatchlistRepository defines a user's explicit product watch list.
// (user, asin) is unique.
type WatchlistRepository interface {
	// AddWatch adds a watch entry. Returns ErrDuplicate on repeats.
	AddWatch(ctx context.Context, userID int64, asin string) error

	// RemoveWatch deletes a watch entry. Returns ErrNotFound when absent.
	RemoveWatch(ctx context.Context, userID int64, asin string) error

	// ListWatchedASINs returns the product keys a user watches.
	ListWatchedASINs(ctx context.Context, userID int64) ([]string, error)
}

// RunRepository persists finished update-run summaries for auditing.
type RunRepository interface {
	// InsertRun records one finished run.
	InsertRun(ctx context.Context, run *model.UpdateRun) error

	// ListRuns returns runs newest first, with pagination.
	ListRuns(ctx context.Context, limit, offset int) ([]model.UpdateRun, int64, error)
}

// Store is the full persistence surface backing the core. Implemented
// by the SQLite and PostgreSQL backends; the watch list may instead be
// served by a separate MySQL repository when one is configured.
type Store interface {
	ProductRepository
	MarketRepository
	ClusterRepository
	WatchlistRepository
	RunRepository

	// Stats returns backend statistics for the admin surface.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the underlying connection.
	Close() error
}
