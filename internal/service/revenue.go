package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"markettrack-api/internal/repository"
)

// ProductRevenue derives per-product revenue as round(blm × price, 2).
// Nil unless both inputs are known: nil means "unknown", which is a
// different statement than a revenue known to be zero.
func ProductRevenue(blm *int64, price *float64) *float64 {
	if blm == nil || price == nil {
		return nil
	}
	v := round2(float64(*blm) * *price)
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RevenueService rolls per-product revenue up into per-market totals
// and per-cluster cached sums.
type RevenueService struct {
	products repository.ProductRepository
	markets  repository.MarketRepository
	clusters repository.ClusterRepository

	// maxAge optionally excludes stale fallback data from market
	// totals; zero keeps the historical behavior of using whatever is
	// known regardless of age.
	maxAge time.Duration
}

// NewRevenueService creates a revenue service.
func NewRevenueService(
	products repository.ProductRepository,
	markets repository.MarketRepository,
	clusters repository.ClusterRepository,
	maxAge time.Duration,
) *RevenueService {
	return &RevenueService{
		products: products,
		markets:  markets,
		clusters: clusters,
		maxAge:   maxAge,
	}
}

// MarketRevenue totals the member products' revenue as of the given
// time. Per product it uses the latest change strictly before asOf,
// falling back to the overall latest change when none exists yet;
// known-but-stale beats nothing. Products that were never scraped or
// have no known revenue contribute nothing. Returns nil when zero
// products contributed: a market with no revenue data is "unknown",
// not confirmed to make $0.
func (s *RevenueService) MarketRevenue(ctx context.Context, marketID int64, asOf time.Time) (*float64, error) {
	asins, err := s.markets.ListMemberASINs(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load market members: %w", err)
	}

	var total float64
	contributed := false
	for _, asin := range asins {
		change, err := s.products.LatestProductChangeBefore(ctx, asin, asOf)
		if errors.Is(err, repository.ErrNotFound) {
			change, err = s.products.LatestProductChange(ctx, asin)
		}
		if errors.Is(err, repository.ErrNotFound) {
			// Member was never scraped: a null contribution, not an error.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load latest change for %s: %w", asin, err)
		}
		if s.maxAge > 0 && asOf.Sub(change.CapturedAt) > s.maxAge {
			continue
		}
		if change.Revenue != nil {
			total += *change.Revenue
			contributed = true
		}
	}

	if !contributed {
		return nil, nil
	}
	v := round2(total)
	return &v, nil
}

// RecomputeClusterRevenue recomputes one cluster's cached total from
// the member markets' latest change records, substituting 0 for
// unknown market revenue. Idempotent; the cached column is a
// materialized view, never a source of truth.
func (s *RevenueService) RecomputeClusterRevenue(ctx context.Context, clusterID int64) (float64, error) {
	marketIDs, err := s.clusters.ListClusterMarketIDs(ctx, clusterID)
	if err != nil {
		return 0, fmt.Errorf("failed to load cluster markets: %w", err)
	}

	var total float64
	for _, id := range marketIDs {
		change, err := s.markets.LatestMarketChange(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to load latest change for market %d: %w", id, err)
		}
		if change.TotalRevenue != nil {
			total += *change.TotalRevenue
		}
	}

	total = round2(total)
	if err := s.clusters.SetClusterRevenue(ctx, clusterID, total); err != nil {
		return 0, err
	}
	return total, nil
}

// RecomputeAllClusters refreshes every cluster's cached total. Runs
// after a market update run completes; one cluster's failure does not
// stop the others.
func (s *RevenueService) RecomputeAllClusters(ctx context.Context) {
	clusters, err := s.clusters.ListAllClusters(ctx)
	if err != nil {
		log.Printf("[RevenueService] Failed to list clusters for recompute: %v", err)
		return
	}
	for _, c := range clusters {
		if _, err := s.RecomputeClusterRevenue(ctx, c.ID); err != nil {
			log.Printf("[RevenueService] Failed to recompute cluster %d: %v", c.ID, err)
		}
	}
}
