package service

import (
	"context"
	"errors"
	"strings"

	"markettrack-api/internal/model"
	"markettrack-api/internal/repository"
)

// ClusterService manages user-defined groups of markets and their
// cached aggregate revenue.
type ClusterService struct {
	clusters repository.ClusterRepository
	markets  repository.MarketRepository
	revenue  *RevenueService
}

// NewClusterService creates a cluster service.
func NewClusterService(clusters repository.ClusterRepository, markets repository.MarketRepository, revenue *RevenueService) *ClusterService {
	return &ClusterService{clusters: clusters, markets: markets, revenue: revenue}
}

// Create adds a new, empty cluster owned by the user.
func (s *ClusterService) Create(ctx context.Context, userID int64, name string) (*model.MarketCluster, error) {
	return s.clusters.CreateCluster(ctx, userID, strings.TrimSpace(name))
}

// Get returns one cluster after verifying ownership.
func (s *ClusterService) Get(ctx context.Context, userID, clusterID int64) (*model.MarketCluster, error) {
	cluster, err := s.clusters.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	if cluster.UserID != userID {
		return nil, ErrNotOwner
	}
	return cluster, nil
}

// ListForUser returns the user's clusters.
func (s *ClusterService) ListForUser(ctx context.Context, userID int64) ([]model.MarketCluster, error) {
	return s.clusters.ListClustersByUser(ctx, userID)
}

// AttachMarket adds a market to the cluster and refreshes the cached
// cluster revenue so the new member counts immediately.
func (s *ClusterService) AttachMarket(ctx context.Context, userID, clusterID, marketID int64) error {
	if _, err := s.Get(ctx, userID, clusterID); err != nil {
		return err
	}
	if _, err := s.markets.GetMarket(ctx, marketID); err != nil {
		return err
	}
	if err := s.clusters.AttachMarket(ctx, clusterID, marketID); err != nil {
		return err
	}
	_, err := s.revenue.RecomputeClusterRevenue(ctx, clusterID)
	return err
}

// Markets returns the cluster's member markets with their latest state.
func (s *ClusterService) Markets(ctx context.Context, userID, clusterID int64) ([]model.MarketSummary, error) {
	if _, err := s.Get(ctx, userID, clusterID); err != nil {
		return nil, err
	}
	ids, err := s.clusters.ListClusterMarketIDs(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	out := make([]model.MarketSummary, 0, len(ids))
	for _, id := range ids {
		m, err := s.markets.GetMarket(ctx, id)
		if err != nil {
			return nil, err
		}
		summary := model.MarketSummary{Market: *m}
		latest, err := s.markets.LatestMarketChange(ctx, id)
		if err == nil {
			summary.RevenueTotal = latest.TotalRevenue
			summary.TopSuggestions = latest.TopSuggestions
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}
