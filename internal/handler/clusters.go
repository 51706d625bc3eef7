package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"markettrack-api/internal/service"
	"markettrack-api/pkg/apierror"
	"markettrack-api/pkg/response"
)

// ClusterHandler handles market-cluster HTTP requests. Every route is
// scoped to the caller identified by the X-User-ID header.
type ClusterHandler struct {
	clusters  *service.ClusterService
	watchlist *service.WatchlistService
}

// NewClusterHandler creates a new cluster handler.
func NewClusterHandler(clusters *service.ClusterService, watchlist *service.WatchlistService) *ClusterHandler {
	return &ClusterHandler{clusters: clusters, watchlist: watchlist}
}

type createClusterRequest struct {
	Name string `json:"name"`
}

// CreateCluster handles POST /api/v1/clusters
func (h *ClusterHandler) CreateCluster(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req createClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.Error(w, apierror.BadRequest("name is required"))
		return
	}

	cluster, err := h.clusters.Create(r.Context(), uid, req.Name)
	if err != nil {
		response.Error(w, translate(err, "cluster"))
		return
	}
	response.Created(w, cluster)
}

// ListClusters handles GET /api/v1/clusters
func (h *ClusterHandler) ListClusters(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	clusters, err := h.clusters.ListForUser(r.Context(), uid)
	if err != nil {
		response.Error(w, translate(err, "cluster"))
		return
	}
	response.OK(w, clusters)
}

// GetCluster handles GET /api/v1/clusters/{id}
func (h *ClusterHandler) GetCluster(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	id, apiErr := idParam(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	cluster, err := h.clusters.Get(r.Context(), uid, id)
	if err != nil {
		response.Error(w, translate(err, "cluster"))
		return
	}
	response.OK(w, cluster)
}

type attachMarketRequest struct {
	MarketID int64 `json:"market_id"`
}

// AttachMarket handles POST /api/v1/clusters/{id}/markets
func (h *ClusterHandler) AttachMarket(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	id, apiErr := idParam(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var req attachMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.MarketID <= 0 {
		response.Error(w, apierror.BadRequest("market_id is required"))
		return
	}

	if err := h.clusters.AttachMarket(r.Context(), uid, id, req.MarketID); err != nil {
		response.Error(w, translate(err, "cluster"))
		return
	}
	response.NoContent(w)
}

// ListMarkets handles GET /api/v1/clusters/{id}/markets
func (h *ClusterHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	id, apiErr := idParam(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	markets, err := h.clusters.Markets(r.Context(), uid, id)
	if err != nil {
		response.Error(w, translate(err, "cluster"))
		return
	}
	response.OK(w, markets)
}

// WatchedCount handles GET /api/v1/clusters/{id}/watched-count
func (h *ClusterHandler) WatchedCount(w http.ResponseWriter, r *http.Request) {
	uid, apiErr := userID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	id, apiErr := idParam(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	count, err := h.watchlist.WatchedInCluster(r.Context(), uid, id)
	if err != nil {
		response.Error(w, translate(err, "cluster"))
		return
	}
	response.OK(w, map[string]interface{}{
		"cluster_id":    id,
		"watched_count": count,
	})
}
