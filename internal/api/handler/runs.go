package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/evinsight/internal/api/response"
	"github.com/kiranshivaraju/evinsight/internal/store"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

const defaultRunsLimit = 20

// RunReader is the read side of the run ledger.
type RunReader interface {
	ListRecentRuns(ctx context.Context, limit int) ([]*models.AnalysisRun, error)
	GetAnalysisRun(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error)
}

// NewListRunsHandler returns an http.HandlerFunc for GET /api/v1/ai/runs.
// A nil reader means no database is configured.
func NewListRunsHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			databaseUnavailable(w)
			return
		}

		limit := defaultRunsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be an integer", nil)
				return
			}
			limit = n
		}
		if limit < 1 {
			limit = 1
		}
		if limit > store.MaxListLimit {
			limit = store.MaxListLimit
		}

		list, err := runs.ListRecentRuns(r.Context(), limit)
		if err != nil {
			slog.Error("list analysis runs failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list analysis runs", nil)
			return
		}
		response.Collection(w, list, response.ListMeta{Limit: limit, Count: len(list)})
	}
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/v1/ai/runs/{runID}.
func NewGetRunHandler(runs RunReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			databaseUnavailable(w)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "runID must be a valid UUID", nil)
			return
		}

		run, err := runs.GetAnalysisRun(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusNotFound, "RUN_NOT_FOUND", "Analysis run not found", nil)
		case err != nil:
			slog.Error("get analysis run failed", "run_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load analysis run", nil)
		default:
			response.JSON(w, run)
		}
	}
}

func databaseUnavailable(w http.ResponseWriter) {
	response.Error(w, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", store.ErrNoDatabase.Error(), nil)
}
