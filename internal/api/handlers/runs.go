package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dupefind/dupefind/internal/log"
	"github.com/dupefind/dupefind/internal/results"
	"github.com/dupefind/dupefind/internal/store"
)

// RunsHandler handles GET /api/runs and GET /api/runs/{id}/groups.
type RunsHandler struct {
	DB     *sql.DB
	Logger *log.Logger
}

type runSummary struct {
	ID               int64    `json:"id"`
	UUID             string   `json:"uuid"`
	StartedAt        string   `json:"started_at"`
	FinishedAt       string   `json:"finished_at"`
	Mode             string   `json:"mode"`
	Algorithm        string   `json:"algorithm"`
	Paths            []string `json:"paths"`
	DurationMS       int64    `json:"duration_ms"`
	Groups           int      `json:"groups"`
	DuplicateFiles   int      `json:"duplicate_files"`
	ReclaimableBytes int64    `json:"reclaimable_bytes"`
	ReferenceGroups  int      `json:"reference_groups"`
	Cancelled        bool     `json:"cancelled"`
}

// List handles GET /api/runs — paginated, newest-first run summaries.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := store.ListRuns(h.DB, limit)
	if err != nil {
		writeError(h.Logger, w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	items := make([]runSummary, len(runs))
	for i, run := range runs {
		items[i] = runSummary{
			ID:               run.ID,
			UUID:             run.UUID,
			StartedAt:        run.StartedAt.Format(time.RFC3339),
			FinishedAt:       run.FinishedAt.Format(time.RFC3339),
			Mode:             run.Mode,
			Algorithm:        run.Algorithm,
			Paths:            run.Paths,
			DurationMS:       run.Duration.Milliseconds(),
			Groups:           run.Report.Stats.Groups,
			DuplicateFiles:   run.Report.Stats.DuplicateFiles,
			ReclaimableBytes: run.Report.Stats.ReclaimableBytes,
			ReferenceGroups:  run.Report.Stats.ReferenceGroups,
			Cancelled:        run.Cancelled,
		}
	}
	writeJSON(h.Logger, w, http.StatusOK, map[string]any{"items": items})
}

// Groups handles GET /api/runs/{id}/groups — the group rows for one run.
// An unknown id returns 404, never a panic or 500.
func (h *RunsHandler) Groups(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(h.Logger, w, http.StatusBadRequest, "INVALID_ID", "run id must be an integer")
		return
	}

	run, err := store.GetRun(h.DB, id)
	if err != nil {
		writeError(h.Logger, w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if run == nil {
		writeError(h.Logger, w, http.StatusNotFound, "RUN_NOT_FOUND", "no run with that id")
		return
	}

	groups, err := store.GetGroups(h.DB, id)
	if err != nil {
		writeError(h.Logger, w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if groups == nil {
		groups = []results.GroupSummary{}
	}
	writeJSON(h.Logger, w, http.StatusOK, map[string]any{"items": groups})
}
