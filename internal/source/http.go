package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"markettrack-api/internal/model"
)

// HTTPSource talks to the scraper service over HTTP. Calls are rate
// limited so update runs cannot hammer the scraper (and, indirectly,
// the scraped site).
type HTTPSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource creates a source client against the given base URL.
// requestsPerMinute bounds outbound calls; zero disables the limit.
func NewHTTPSource(baseURL string, requestsPerMinute int, timeout time.Duration) *HTTPSource {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// MarketSnapshot fetches the search-result snapshot for a keyword.
func (s *HTTPSource) MarketSnapshot(ctx context.Context, keyword string) (*model.MarketSnapshot, error) {
	endpoint := fmt.Sprintf("%s/snapshots/market?keyword=%s", s.baseURL, url.QueryEscape(keyword))
	var snap model.MarketSnapshot
	if err := s.get(ctx, endpoint, &snap); err != nil {
		return nil, err
	}
	if snap.Keyword == "" {
		snap.Keyword = keyword
	}
	return &snap, nil
}

// ProductSnapshot fetches the product-detail snapshot for an ASIN.
func (s *HTTPSource) ProductSnapshot(ctx context.Context, asin string) (*model.ProductSnapshot, error) {
	endpoint := fmt.Sprintf("%s/snapshots/product/%s", s.baseURL, url.PathEscape(asin))
	var snap model.ProductSnapshot
	if err := s.get(ctx, endpoint, &snap); err != nil {
		return nil, err
	}
	if snap.ASIN == "" {
		snap.ASIN = asin
	}
	return &snap, nil
}

func (s *HTTPSource) get(ctx context.Context, endpoint string, out interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad payload: %v", ErrUnavailable, err)
	}
	return nil
}

// Ensure HTTPSource implements Source
var _ Source = (*HTTPSource)(nil)
