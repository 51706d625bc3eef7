package service

import (
	"context"
	"errors"

	"markettrack-api/internal/repository"
)

// ErrNotOwner indicates the caller tried to use a cluster owned by a
// different user.
var ErrNotOwner = errors.New("cluster not owned by caller")

// WatchlistService manages a user's explicit product watch list and
// the insights derived from it.
type WatchlistService struct {
	watchlist repository.WatchlistRepository
	clusters  repository.ClusterRepository
	products  repository.ProductRepository
}

// NewWatchlistService creates a watchlist service.
func NewWatchlistService(
	watchlist repository.WatchlistRepository,
	clusters repository.ClusterRepository,
	products repository.ProductRepository,
) *WatchlistService {
	return &WatchlistService{
		watchlist: watchlist,
		clusters:  clusters,
		products:  products,
	}
}

// Watch adds a product to the user's watch list, creating the product
// head row when the ASIN is new to the system. Duplicate entries
// surface repository.ErrDuplicate.
func (s *WatchlistService) Watch(ctx context.Context, userID int64, asin string) error {
	if err := s.products.EnsureProduct(ctx, asin); err != nil {
		return err
	}
	return s.watchlist.AddWatch(ctx, userID, asin)
}

// Unwatch removes a product from the user's watch list.
func (s *WatchlistService) Unwatch(ctx context.Context, userID int64, asin string) error {
	return s.watchlist.RemoveWatch(ctx, userID, asin)
}

// Watched returns the ASINs the user watches.
func (s *WatchlistService) Watched(ctx context.Context, userID int64) ([]string, error) {
	return s.watchlist.ListWatchedASINs(ctx, userID)
}

// WatchedInCluster counts how many of the user's watched products
// currently belong to any market inside the given cluster. The
// ownership check runs against the caller id; the count crosses the
// watch list and the market store, which may live in different
// databases, so it is intersected here rather than joined in SQL.
func (s *WatchlistService) WatchedInCluster(ctx context.Context, userID, clusterID int64) (int, error) {
	cluster, err := s.clusters.GetCluster(ctx, clusterID)
	if err != nil {
		return 0, err
	}
	if cluster.UserID != userID {
		return 0, ErrNotOwner
	}

	watched, err := s.watchlist.ListWatchedASINs(ctx, userID)
	if err != nil {
		return 0, err
	}
	inCluster, err := s.clusters.ListClusterASINs(ctx, clusterID)
	if err != nil {
		return 0, err
	}

	clusterSet := make(map[string]struct{}, len(inCluster))
	for _, asin := range inCluster {
		clusterSet[asin] = struct{}{}
	}
	count := 0
	for _, asin := range watched {
		if _, ok := clusterSet[asin]; ok {
			count++
		}
	}
	return count, nil
}
