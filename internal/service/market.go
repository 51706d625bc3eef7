package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"markettrack-api/internal/detect"
	"markettrack-api/internal/model"
	"markettrack-api/internal/repository"
	"markettrack-api/internal/source"
)

// MarketService drives the market update loop: fetch a fresh snapshot
// per market, detect change against the stored state, and append an
// immutable change record when something moved.
type MarketService struct {
	markets  repository.MarketRepository
	products repository.ProductRepository
	runs     repository.RunRepository
	source   source.Source
	revenue  *RevenueService

	now func() time.Time
}

// NewMarketService creates a market service.
func NewMarketService(
	markets repository.MarketRepository,
	products repository.ProductRepository,
	runs repository.RunRepository,
	src source.Source,
	revenue *RevenueService,
) *MarketService {
	return &MarketService{
		markets:  markets,
		products: products,
		runs:     runs,
		source:   src,
		revenue:  revenue,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register adds a new market keyword to track.
func (s *MarketService) Register(ctx context.Context, keyword string) (*model.Market, error) {
	return s.markets.CreateMarket(ctx, strings.TrimSpace(keyword))
}

// UpdateAll runs one full pass over every market. Each market is
// processed independently; a failure is logged, counted and isolated.
// Only failing to read the market list at all aborts the run. After
// the pass, every cluster's cached revenue is recomputed once.
func (s *MarketService) UpdateAll(ctx context.Context) (*model.RunSummary, error) {
	markets, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}

	run := model.NewRunSummary("markets")
	for _, m := range markets {
		outcome, reason := s.updateMarket(ctx, &m)
		run.Record(m.Keyword, outcome, reason)
		if outcome == model.OutcomeFailed {
			log.Printf("[MarketService] Market %q failed: %s", m.Keyword, reason)
		}
	}

	// One recompute pass for all clusters, not one per market.
	s.revenue.RecomputeAllClusters(ctx)

	run.FinishedAt = s.now()
	s.persistRun(ctx, run)
	log.Printf("[MarketService] Run finished: %d updated, %d unchanged, %d skipped, %d failed",
		run.Updated, run.Unchanged, run.Skipped, run.Failed)
	return run, nil
}

// UpdateOne processes a single market by keyword.
func (s *MarketService) UpdateOne(ctx context.Context, keyword string) (*model.EntityResult, error) {
	m, err := s.markets.GetMarketByKeyword(ctx, keyword)
	if err != nil {
		return nil, err
	}
	outcome, reason := s.updateMarket(ctx, m)
	return &model.EntityResult{Key: m.Keyword, Outcome: outcome, Reason: reason}, nil
}

// RefreshByID processes a single market by id.
func (s *MarketService) RefreshByID(ctx context.Context, id int64) (*model.EntityResult, error) {
	m, err := s.markets.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	outcome, reason := s.updateMarket(ctx, m)
	return &model.EntityResult{Key: m.Keyword, Outcome: outcome, Reason: reason}, nil
}

func (s *MarketService) updateMarket(ctx context.Context, m *model.Market) (model.Outcome, string) {
	prev, err := s.markets.LatestMarketChange(ctx, m.ID)
	if errors.Is(err, repository.ErrNotFound) {
		prev = nil
	} else if err != nil {
		return model.OutcomeFailed, fmt.Sprintf("load latest change: %v", err)
	}

	// A market with history but zero ever-scraped members has nothing
	// to diff or aggregate; leave it for a later run. Markets without
	// any change record yet always go through so their first snapshot
	// can bootstrap the membership.
	if prev != nil {
		scraped, err := s.markets.CountScrapedMembers(ctx, m.ID)
		if err != nil {
			return model.OutcomeFailed, fmt.Sprintf("count scraped members: %v", err)
		}
		if scraped == 0 {
			return model.OutcomeSkipped, "no scraped products"
		}
	}

	members, err := s.markets.ListMemberASINs(ctx, m.ID)
	if err != nil {
		return model.OutcomeFailed, fmt.Sprintf("load members: %v", err)
	}

	snap, err := s.source.MarketSnapshot(ctx, m.Keyword)
	if err != nil || snap == nil {
		return model.OutcomeFailed, "source unavailable"
	}

	// The search-result page did observe every listed product, so the
	// scrape liveness of those products moves forward with the market.
	now := s.now()
	for _, asin := range snap.ASINs() {
		if err := s.products.EnsureProduct(ctx, asin); err != nil {
			return model.OutcomeFailed, fmt.Sprintf("ensure product %s: %v", asin, err)
		}
		if err := s.products.TouchLastScraped(ctx, asin, now); err != nil {
			return model.OutcomeFailed, fmt.Sprintf("touch product %s: %v", asin, err)
		}
	}

	newRevenue, err := s.revenue.MarketRevenue(ctx, m.ID, now)
	if err != nil {
		return model.OutcomeFailed, fmt.Sprintf("compute revenue: %v", err)
	}

	res := detect.Market(prev, members, snap)

	var lastRevenue *float64
	if prev != nil {
		lastRevenue = prev.TotalRevenue
	}
	revenueChanged := !floatPtrEqual(newRevenue, lastRevenue)

	if !res.Changed && !revenueChanged {
		return model.OutcomeUnchanged, ""
	}

	summary := res.Summary
	if revenueChanged && prev != nil {
		summary = append(summary, fmt.Sprintf("Umsatz geändert: %s → %s",
			renderRevenue(lastRevenue), renderRevenue(newRevenue)))
	}

	change := &model.MarketChange{
		MarketID:       m.ID,
		CapturedAt:     s.now(),
		TotalRevenue:   newRevenue,
		AddedASINs:     res.Added,
		RemovedASINs:   res.Removed,
		TopSuggestions: res.Suggestions,
		ChangeSummary:  strings.Join(summary, detect.SummarySeparator),
	}
	if err := s.markets.ApplyMarketUpdate(ctx, m.ID, change); err != nil {
		return model.OutcomeFailed, fmt.Sprintf("apply update: %v", err)
	}
	return model.OutcomeUpdated, ""
}

// Summary assembles the presentation view of one market: the latest
// aggregate state plus an overview of each current member product.
func (s *MarketService) Summary(ctx context.Context, marketID int64) (*model.MarketSummary, error) {
	m, err := s.markets.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	out := &model.MarketSummary{Market: *m}

	latest, err := s.markets.LatestMarketChange(ctx, marketID)
	if err == nil {
		out.RevenueTotal = latest.TotalRevenue
		out.TopSuggestions = latest.TopSuggestions
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	members, err := s.markets.ListMemberASINs(ctx, marketID)
	if err != nil {
		return nil, err
	}
	out.Products = make([]model.ProductOverview, 0, len(members))
	for _, asin := range members {
		overview := model.ProductOverview{ASIN: asin}
		change, err := s.products.LatestProductChange(ctx, asin)
		if err == nil {
			overview.Title = change.Title
			overview.Price = change.Price
			overview.Revenue = change.Revenue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		out.Products = append(out.Products, overview)
	}
	return out, nil
}

// History returns the market's full change history, oldest first.
func (s *MarketService) History(ctx context.Context, marketID int64) ([]model.MarketChange, error) {
	if _, err := s.markets.GetMarket(ctx, marketID); err != nil {
		return nil, err
	}
	return s.markets.ListMarketChanges(ctx, marketID)
}

// List returns every market with its latest known revenue.
func (s *MarketService) List(ctx context.Context) ([]model.MarketSummary, error) {
	markets, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.MarketSummary, 0, len(markets))
	for _, m := range markets {
		summary := model.MarketSummary{Market: m}
		latest, err := s.markets.LatestMarketChange(ctx, m.ID)
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

func (s *MarketService) persistRun(ctx context.Context, run *model.RunSummary) {
	if s.runs == nil {
		return
	}
	err := s.runs.InsertRun(ctx, &model.UpdateRun{
		Kind:       run.Kind,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Updated:    run.Updated,
		Unchanged:  run.Unchanged,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
	})
	if err != nil {
		log.Printf("[MarketService] Failed to persist run summary: %v", err)
	}
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func renderRevenue(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
