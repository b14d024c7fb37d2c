package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sahayog-network/sahayog/internal/app/cluster"
	"github.com/sahayog-network/sahayog/internal/domain"
)

// ─── Cluster API ────────────────────────────────────────────────────────────
//
// GET  /api/communities/{id}/health           — latest stored health record
// POST /api/communities/{id}/health/recompute — compute a fresh one

// ClusterAPI serves community health endpoints.
type ClusterAPI struct {
	Service *cluster.Service
}

// HandleHealth returns the latest stored health record, computing one on
// demand for communities never evaluated.
// GET /api/communities/{id}/health
func (a *ClusterAPI) HandleHealth(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "id")

	snap, err := a.Service.Latest(r.Context(), communityID)
	if errors.Is(err, domain.ErrCommunityNotFound) {
		writeError(w, http.StatusNotFound, "community not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		fresh, err := a.Service.Compute(r.Context(), communityID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		snap = &fresh
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleRecompute computes and returns a fresh health record.
// POST /api/communities/{id}/health/recompute
func (a *ClusterAPI) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "id")

	snap, err := a.Service.Compute(r.Context(), communityID)
	if errors.Is(err, domain.ErrCommunityNotFound) {
		writeError(w, http.StatusNotFound, "community not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
