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
	"markettrack-api/internal/timeseries"
)

// ProductService drives the product-detail update loop and serves
// product history and chart series.
type ProductService struct {
	products repository.ProductRepository
	runs     repository.RunRepository
	source   source.Source

	now func() time.Time
}

// NewProductService creates a product service.
func NewProductService(
	products repository.ProductRepository,
	runs repository.RunRepository,
	src source.Source,
) *ProductService {
	return &ProductService{
		products: products,
		runs:     runs,
		source:   src,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UpdateAll runs one full pass over every known product. Per-entity
// failures are isolated and counted; only failing to read the product
// list aborts the run.
func (s *ProductService) UpdateAll(ctx context.Context) (*model.RunSummary, error) {
	asins, err := s.products.ListProductASINs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	run := model.NewRunSummary("products")
	for _, asin := range asins {
		outcome, reason := s.updateProduct(ctx, asin)
		run.Record(asin, outcome, reason)
		if outcome == model.OutcomeFailed {
			log.Printf("[ProductService] Product %s failed: %s", asin, reason)
		}
	}

	run.FinishedAt = s.now()
	s.persistRun(ctx, run)
	log.Printf("[ProductService] Run finished: %d updated, %d unchanged, %d skipped, %d failed",
		run.Updated, run.Unchanged, run.Skipped, run.Failed)
	return run, nil
}

// UpdateOne processes a single product by ASIN.
func (s *ProductService) UpdateOne(ctx context.Context, asin string) (*model.EntityResult, error) {
	if _, err := s.products.GetProduct(ctx, asin); err != nil {
		return nil, err
	}
	outcome, reason := s.updateProduct(ctx, asin)
	return &model.EntityResult{Key: asin, Outcome: outcome, Reason: reason}, nil
}

func (s *ProductService) updateProduct(ctx context.Context, asin string) (model.Outcome, string) {
	snap, err := s.source.ProductSnapshot(ctx, asin)
	if err != nil || snap == nil {
		return model.OutcomeFailed, "source unavailable"
	}

	// Title and price are the minimum for a usable snapshot; anything
	// less is treated as "no usable data", counted apart from a source
	// outage.
	if snap.Title == "" || snap.Price == nil {
		return model.OutcomeSkipped, "incomplete snapshot"
	}

	now := s.now()
	if err := s.products.EnsureProduct(ctx, asin); err != nil {
		return model.OutcomeFailed, fmt.Sprintf("ensure product: %v", err)
	}
	if err := s.products.TouchLastScraped(ctx, asin, now); err != nil {
		return model.OutcomeFailed, fmt.Sprintf("touch product: %v", err)
	}

	prev, err := s.products.LatestProductChange(ctx, asin)
	if errors.Is(err, repository.ErrNotFound) {
		prev = nil
	} else if err != nil {
		return model.OutcomeFailed, fmt.Sprintf("load latest change: %v", err)
	}

	res := detect.Product(prev, snap)
	if !res.Changed {
		return model.OutcomeUnchanged, ""
	}

	change := buildProductChange(asin, snap, prev, now)
	change.ChangeSummary = strings.Join(res.Summary, detect.SummarySeparator)
	if err := s.products.AppendProductChange(ctx, change); err != nil {
		return model.OutcomeFailed, fmt.Sprintf("append change: %v", err)
	}
	return model.OutcomeUpdated, ""
}

// buildProductChange assembles the new immutable record. Observed
// values win; fields missing from the snapshot carry the previous
// record's value forward so a change record is always a complete
// picture of the product. Revenue is derived from the record's own
// (blm, price) pair and can never disagree with them.
func buildProductChange(asin string, snap *model.ProductSnapshot, prev *model.ProductChange, at time.Time) *model.ProductChange {
	c := &model.ProductChange{
		ASIN:               asin,
		CapturedAt:         at,
		Title:              snap.Title,
		Price:              snap.Price,
		MainCategory:       snap.MainCategory,
		MainCategoryRank:   snap.MainCategoryRank,
		SecondCategory:     snap.SecondCategory,
		SecondCategoryRank: snap.SecondCategoryRank,
		BoughtLastMonth:    snap.BoughtLastMonth,
		ReviewCount:        snap.ReviewCount,
		Rating:             snap.Rating,
		ImagePath:          snap.ImagePath,
		Store:              snap.Store,
		Manufacturer:       snap.Manufacturer,
	}
	if prev != nil {
		if c.Title == "" {
			c.Title = prev.Title
		}
		if c.Price == nil {
			c.Price = prev.Price
		}
		if c.MainCategory == "" {
			c.MainCategory = prev.MainCategory
		}
		if c.MainCategoryRank == nil {
			c.MainCategoryRank = prev.MainCategoryRank
		}
		if c.SecondCategory == "" {
			c.SecondCategory = prev.SecondCategory
		}
		if c.SecondCategoryRank == nil {
			c.SecondCategoryRank = prev.SecondCategoryRank
		}
		if c.BoughtLastMonth == nil {
			c.BoughtLastMonth = prev.BoughtLastMonth
		}
		if c.ReviewCount == nil {
			c.ReviewCount = prev.ReviewCount
		}
		if c.Rating == nil {
			c.Rating = prev.Rating
		}
		if c.ImagePath == "" {
			c.ImagePath = prev.ImagePath
		}
		if c.Store == "" {
			c.Store = prev.Store
		}
		if c.Manufacturer == "" {
			c.Manufacturer = prev.Manufacturer
		}
	}
	c.Revenue = ProductRevenue(c.BoughtLastMonth, c.Price)
	return c
}

// Latest returns the product head row plus its newest change record.
func (s *ProductService) Latest(ctx context.Context, asin string) (*model.Product, *model.ProductChange, error) {
	p, err := s.products.GetProduct(ctx, asin)
	if err != nil {
		return nil, nil, err
	}
	change, err := s.products.LatestProductChange(ctx, asin)
	if errors.Is(err, repository.ErrNotFound) {
		return p, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return p, change, nil
}

// History returns the product's full change history, oldest first.
func (s *ProductService) History(ctx context.Context, asin string) ([]model.ProductChange, error) {
	if _, err := s.products.GetProduct(ctx, asin); err != nil {
		return nil, err
	}
	return s.products.ListProductChanges(ctx, asin)
}

// ChartSeries reconstructs the per-day chart payload for a product.
// Returns timeseries.ErrNoData for products with zero history.
func (s *ProductService) ChartSeries(ctx context.Context, asin string, fields []string) (*timeseries.Series, error) {
	changes, err := s.products.ListProductChanges(ctx, asin)
	if err != nil {
		return nil, err
	}
	return timeseries.Build(changes, fields)
}

func (s *ProductService) persistRun(ctx context.Context, run *model.RunSummary) {
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
		log.Printf("[ProductService] Failed to persist run summary: %v", err)
	}
}
