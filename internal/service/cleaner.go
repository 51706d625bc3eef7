package service

import (
	"context"
	"fmt"
	"log"

	"markettrack-api/internal/detect"
	"markettrack-api/internal/repository"
)

// SummaryCleaner is the offline backfill that normalizes stored change
// summaries to the canonical comma-delimited form. It is the only code
// allowed to touch a change record after creation.
type SummaryCleaner struct {
	products repository.ProductRepository
	markets  repository.MarketRepository
}

// NewSummaryCleaner creates a summary cleaner.
func NewSummaryCleaner(products repository.ProductRepository, markets repository.MarketRepository) *SummaryCleaner {
	return &SummaryCleaner{products: products, markets: markets}
}

// CleanAll normalizes every stored product and market change summary.
// Idempotent: rows already in canonical form are left untouched, so a
// re-run updates nothing.
func (c *SummaryCleaner) CleanAll(ctx context.Context) (int, error) {
	updated := 0

	productRows, err := c.products.ListProductChangeSummaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list product summaries: %w", err)
	}
	for _, row := range productRows {
		cleaned := detect.CleanSummary(row.Summary)
		if cleaned == row.Summary {
			continue
		}
		if err := c.products.UpdateProductChangeSummary(ctx, row.ID, cleaned); err != nil {
			return updated, fmt.Errorf("failed to update product summary %d: %w", row.ID, err)
		}
		updated++
	}

	marketRows, err := c.markets.ListMarketChangeSummaries(ctx)
	if err != nil {
		return updated, fmt.Errorf("failed to list market summaries: %w", err)
	}
	for _, row := range marketRows {
		cleaned := detect.CleanSummary(row.Summary)
		if cleaned == row.Summary {
			continue
		}
		if err := c.markets.UpdateMarketChangeSummary(ctx, row.ID, cleaned); err != nil {
			return updated, fmt.Errorf("failed to update market summary %d: %w", row.ID, err)
		}
		updated++
	}

	log.Printf("[SummaryCleaner] Normalized %d change summaries", updated)
	return updated, nil
}
