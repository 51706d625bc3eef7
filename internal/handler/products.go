package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"markettrack-api/internal/cache"
	"markettrack-api/internal/service"
	"markettrack-api/internal/timeseries"
	"markettrack-api/pkg/apierror"
	"markettrack-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	products *service.ProductService
	cache    cache.Cache
	chartTTL time.Duration
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products *service.ProductService, c cache.Cache, chartTTL time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		cache:    c,
		chartTTL: chartTTL,
	}
}

// GetProduct handles GET /api/v1/products/{asin}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")
	if asin == "" {
		response.Error(w, apierror.BadRequest("asin is required"))
		return
	}

	product, latest, err := h.products.Latest(r.Context(), asin)
	if err != nil {
		response.Error(w, translate(err, "product"))
		return
	}

	response.OK(w, map[string]interface{}{
		"product": product,
		"latest":  latest,
	})
}

// GetHistory handles GET /api/v1/products/{asin}/history
func (h *ProductHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")
	if asin == "" {
		response.Error(w, apierror.BadRequest("asin is required"))
		return
	}

	changes, err := h.products.History(r.Context(), asin)
	if err != nil {
		response.Error(w, translate(err, "product"))
		return
	}

	response.OK(w, changes)
}

// GetChart handles GET /api/v1/products/{asin}/chart?fields=price,revenue
func (h *ProductHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")
	if asin == "" {
		response.Error(w, apierror.BadRequest("asin is required"))
		return
	}

	fields := splitFields(r.URL.Query().Get("fields"))
	if len(fields) == 0 {
		fields = []string{"price", "revenue"}
	}
	for _, f := range fields {
		if !timeseries.KnownField(f) {
			response.Error(w, apierror.BadRequest("unknown chart field: "+f))
			return
		}
	}

	key := chartCacheKey(asin, fields)
	payload, err := h.cache.GetOrSet(r.Context(), key, h.chartTTL, func() ([]byte, error) {
		series, err := h.products.ChartSeries(r.Context(), asin, fields)
		if err != nil {
			return nil, err
		}
		return json.Marshal(series)
	})
	if err != nil {
		if errors.Is(err, timeseries.ErrNoData) {
			response.Error(w, apierror.NotFound("no chart data for product"))
			return
		}
		response.Error(w, translate(err, "product"))
		return
	}

	response.OK(w, json.RawMessage(payload))
}

// Refresh handles POST /api/v1/products/{asin}/refresh
func (h *ProductHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	asin := chi.URLParam(r, "asin")
	if asin == "" {
		response.Error(w, apierror.BadRequest("asin is required"))
		return
	}

	result, err := h.products.UpdateOne(r.Context(), asin)
	if err != nil {
		response.Error(w, translate(err, "product"))
		return
	}

	response.OK(w, result)
}

func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chartCacheKey builds a stable key: field order must not matter.
func chartCacheKey(asin string, fields []string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)
	return "chart:" + asin + ":" + strings.Join(sorted, ",")
}
