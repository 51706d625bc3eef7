package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"markettrack-api/internal/service"
	"markettrack-api/pkg/apierror"
	"markettrack-api/pkg/response"
)

// MarketHandler handles market-related HTTP requests.
type MarketHandler struct {
	markets *service.MarketService
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(markets *service.MarketService) *MarketHandler {
	return &MarketHandler{markets: markets}
}

type createMarketRequest struct {
	Keyword string `json:"keyword"`
}

// CreateMarket handles POST /api/v1/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		response.Error(w, apierror.BadRequest("keyword is required"))
		return
	}

	market, err := h.markets.Register(r.Context(), req.Keyword)
	if err != nil {
		response.Error(w, translate(err, "market"))
		return
	}

	response.Created(w, market)
}

// ListMarkets handles GET /api/v1/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.markets.List(r.Context())
	if err != nil {
		response.Error(w, translate(err, "market"))
		return
	}
	response.OK(w, markets)
}

// GetMarket handles GET /api/v1/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, apiErr := idParam(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	summary, err := h.markets.Summary(r.Context(), id)
	if err != nil {
		response.Error(w, translate(err, "market"))
		return
	}
	response.OK(w, summary)
}

// GetHistory handles GET /api/v1/markets/{id}/history
func (h *MarketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, apiErr := idParam(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	changes, err := h.markets.History(r.Context(), id)
	if err != nil {
		response.Error(w, translate(err, "market"))
		return
	}
	response.OK(w, changes)
}

// Refresh handles POST /api/v1/markets/{id}/refresh
func (h *MarketHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, apiErr := idParam(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	result, err := h.markets.RefreshByID(r.Context(), id)
	if err != nil {
		response.Error(w, translate(err, "market"))
		return
	}
	response.OK(w, result)
}
