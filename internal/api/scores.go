package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sahayog-network/sahayog/internal/app/scoring"
	"github.com/sahayog-network/sahayog/internal/domain"
	"github.com/sahayog-network/sahayog/internal/infra/graph"
)

// ─── Score API ──────────────────────────────────────────────────────────────
//
// GET  /api/users/{id}/score           — latest snapshot with breakdown
// GET  /api/users/{id}/score/history   — snapshots newest first (?limit=)
// POST /api/users/{id}/score/recompute — trigger a recomputation
// GET  /api/users/{id}/graph           — endorsement subgraph (?depth=)

// ScoreAPI serves per-user trust score endpoints.
type ScoreAPI struct {
	Engine *scoring.Engine
	Snaps  domain.SnapshotStore
	Events domain.EventStore
	Graph  *graph.Reader
}

// HandleScore returns the user's latest score snapshot. A user who has
// never been scored gets an on-demand computation.
// GET /api/users/{id}/score
func (a *ScoreAPI) HandleScore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	exists, err := a.Events.UserExists(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	snap, err := a.Snaps.LatestSnapshot(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		fresh, err := a.Engine.Recompute(r.Context(), userID, domain.ReasonManual)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		snap = &fresh
	}

	writeJSON(w, http.StatusOK, scoreResponse(*snap))
}

// HandleScoreHistory returns the user's snapshots newest first.
// GET /api/users/{id}/score/history?limit=N
func (a *ScoreAPI) HandleScoreHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	exists, err := a.Events.UserExists(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	history, err := a.Snaps.SnapshotHistory(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]map[string]interface{}, 0, len(history))
	for _, snap := range history {
		out = append(out, scoreResponse(snap))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"snapshots": out,
	})
}

// recomputeRequest is the optional POST body for score recomputation.
type recomputeRequest struct {
	Reason string `json:"reason"`
}

// HandleRecompute triggers a score recomputation and returns the snapshot.
// POST /api/users/{id}/score/recompute
func (a *ScoreAPI) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	reason := domain.ReasonManual
	if r.Body != nil && r.ContentLength != 0 {
		var req recomputeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if candidate := domain.TriggerReason(req.Reason); candidate.Valid() {
			reason = candidate
		}
	}

	snap, err := a.Engine.Recompute(r.Context(), userID, reason)
	if errors.Is(err, domain.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse(snap))
}

// HandleGraph returns the bounded-depth endorsement subgraph around the user.
// GET /api/users/{id}/graph?depth=N
func (a *ScoreAPI) HandleGraph(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	exists, err := a.Events.UserExists(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	depth := graph.DefaultDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		depth, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "depth must be an integer")
			return
		}
	}

	sub, err := a.Graph.Subgraph(r.Context(), userID, depth)
	if errors.Is(err, domain.ErrInvalidDepth) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// scoreResponse shapes one snapshot for the wire.
func scoreResponse(snap domain.ScoreSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"user_id":      snap.UserID,
		"snapshot_id":  snap.ID,
		"computed_at":  snap.ComputedAt,
		"score":        snap.Total,
		"tier":         scoring.TierLabel(float64(snap.Total)),
		"cold_start":   snap.ColdStart,
		"components":   snap.Components,
		"content_hash": snap.ContentHash,
		"explanation":  snap.Explanation,
	}
}
