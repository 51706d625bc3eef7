package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"markettrack-api/internal/service"
	"markettrack-api/pkg/apierror"
	"markettrack-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// WatchlistHandler handles per-user watch list HTTP requests.
type WatchlistHandler struct {
	watchlist *service.WatchlistService
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(watchlist *service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlist: watchlist}
}

// ListWatched handles GET /api/v1/watchlist
func (h *WatchlistHandler) ListWatched(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	asins, err := h.watchlist.Watched(r.Context(), uid)
	if err != nil {
		response.Error(w, translate(err, "watchlist"))
		return
	}
	response.OK(w, map[string]interface{}{
		"asins": asins,
		"count": len(asins),
	})
}

type watchRequest struct {
	ASIN string `json:"asin"`
}

// Watch handles POST /api/v1/watchlist
func (h *WatchlistHandler) Watch(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	req.ASIN = strings.TrimSpace(req.ASIN)
	if req.ASIN == "" {
		response.Error(w, apierror.BadRequest("asin is required"))
		return
	}

	if err := h.watchlist.Watch(r.Context(), uid, req.ASIN); err != nil {
		response.Error(w, translate(err, "watchlist entry"))
		return
	}
	response.Created(w, map[string]interface{}{
		"asin":    req.ASIN,
		"watched": true,
	})
}

// Unwatch handles DELETE /api/v1/watchlist/{asin}
func (h *WatchlistHandler) Unwatch(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	asin := chi.URLParam(r, "asin")
	if asin == "" {
		response.Error(w, apierror.BadRequest("asin is required"))
		return
	}

	if err := h.watchlist.Unwatch(r.Context(), uid, asin); err != nil {
		response.Error(w, translate(err, "watchlist entry"))
		return
	}
	response.NoContent(w)
}
