package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/database/postgres"
)

// ClusterStore reads persisted clusters. Satisfied by the postgres
// cluster repository.
type ClusterStore interface {
	ListClusters(ctx context.Context, runID string) ([]database.StoredCluster, error)
	GetCluster(ctx context.Context, clusterID string) (*database.StoredCluster, error)
}

// ClustersHandler handles cluster read endpoints
type ClustersHandler struct {
	store ClusterStore
}

// NewClustersHandler creates a new clusters handler
func NewClustersHandler(store ClusterStore) *ClustersHandler {
	return &ClustersHandler{store: store}
}

// List returns the clusters of a run, ordered by start time.
func (h *ClustersHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "cluster persistence is not configured")
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		respondError(w, http.StatusBadRequest, "run_id query parameter is required")
		return
	}

	clusters, err := h.store.ListClusters(r.Context(), runID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list clusters")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"run_id":   runID,
		"clusters": clusters,
	})
}

// Get returns one cluster with its ranked members.
func (h *ClustersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "cluster persistence is not configured")
		return
	}

	clusterID := chi.URLParam(r, "id")
	cluster, err := h.store.GetCluster(r.Context(), clusterID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "cluster not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load cluster")
		return
	}

	respondJSON(w, http.StatusOK, cluster)
}
