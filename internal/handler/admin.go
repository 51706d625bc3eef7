package handler

import (
	"net/http"

	"markettrack-api/internal/repository"
	"markettrack-api/internal/service"
	"markettrack-api/pkg/response"
)

// AdminHandler handles operational endpoints.
type AdminHandler struct {
	store   repository.Store
	cleaner *service.SummaryCleaner
	runs    repository.RunRepository
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(store repository.Store, cleaner *service.SummaryCleaner, runs repository.RunRepository) *AdminHandler {
	return &AdminHandler{store: store, cleaner: cleaner, runs: runs}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		response.Error(w, translate(err, "stats"))
		return
	}
	response.OK(w, stats)
}

// CleanSummaries handles POST /api/v1/admin/clean-summaries
func (h *AdminHandler) CleanSummaries(w http.ResponseWriter, r *http.Request) {
	updated, err := h.cleaner.CleanAll(r.Context())
	if err != nil {
		response.Error(w, translate(err, "summaries"))
		return
	}
	response.OK(w, map[string]interface{}{
		"updated": updated,
	})
}

// ListRuns handles GET /api/v1/admin/runs
func (h *AdminHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)

	runs, total, err := h.runs.ListRuns(r.Context(), limit, (page-1)*limit)
	if err != nil {
		response.Error(w, translate(err, "runs"))
		return
	}
	response.JSONWithMeta(w, http.StatusOK, runs, page, limit, total)
}
