package handler

import (
	"context"
	"net/http"
	"time"

	"markettrack-api/internal/model"
	"markettrack-api/internal/service"
	"markettrack-api/pkg/apierror"
	"markettrack-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// JobHandler starts background update runs and reports their status.
type JobHandler struct {
	products   *service.ProductService
	markets    *service.MarketService
	registry   *service.JobRegistry
	runTimeout time.Duration
}

// NewJobHandler creates a new job handler.
func NewJobHandler(products *service.ProductService, markets *service.MarketService, registry *service.JobRegistry, runTimeout time.Duration) *JobHandler {
	if runTimeout == 0 {
		runTimeout = time.Hour
	}
	return &JobHandler{
		products:   products,
		markets:    markets,
		registry:   registry,
		runTimeout: runTimeout,
	}
}

// StartProductRun handles POST /api/v1/jobs/products
func (h *JobHandler) StartProductRun(w http.ResponseWriter, r *http.Request) {
	h.start(w, "products", func(ctx context.Context) (*model.RunSummary, error) {
		return h.products.UpdateAll(ctx)
	})
}

// StartMarketRun handles POST /api/v1/jobs/markets
func (h *JobHandler) StartMarketRun(w http.ResponseWriter, r *http.Request) {
	h.start(w, "markets", func(ctx context.Context) (*model.RunSummary, error) {
		return h.markets.UpdateAll(ctx)
	})
}

// start registers a job and runs the pass in the background. The
// request context ends with the response, so the run gets its own.
func (h *JobHandler) start(w http.ResponseWriter, kind string, run func(context.Context) (*model.RunSummary, error)) {
	job := h.registry.Start(kind)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
		defer cancel()

		summary, err := run(ctx)
		if err != nil {
			h.registry.Fail(job.ID, err.Error())
			return
		}
		h.registry.Complete(job.ID, summary)
	}()

	response.JSON(w, http.StatusAccepted, job)
}

// GetJob handles GET /api/v1/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	job, ok := h.registry.Get(id)
	if !ok {
		response.Error(w, apierror.NotFound("job not found"))
		return
	}
	response.OK(w, job)
}
