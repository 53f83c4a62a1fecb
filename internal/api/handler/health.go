package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiranshivaraju/evinsight/internal/api/response"
)

const healthPingTimeout = 2 * time.Second

// Pinger checks a dependency's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthBody struct {
	Status   string         `json:"status"`
	Services healthServices `json:"services"`
}

type healthServices struct {
	Database           string   `json:"database"`
	AvailableProviders []string `json:"available_providers"`
	FallbackOnly       bool     `json:"fallback_only"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health. A nil db means
// the run ledger is not configured, which is healthy. Having no AI provider is also
// healthy: analyses still succeed through the rule-based fallback.
func NewHealthHandler(db Pinger, reporter StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		available := reporter.Report().AvailableProviders
		body := healthBody{
			Status: "ok",
			Services: healthServices{
				Database:           "not_configured",
				AvailableProviders: available,
				FallbackOnly:       len(available) == 0,
			},
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				slog.Warn("health check: database unreachable", "error", err)
				body.Status = "degraded"
				body.Services.Database = "unreachable"
				response.Status(w, http.StatusServiceUnavailable, body)
				return
			}
			body.Services.Database = "ok"
		}

		response.JSON(w, body)
	}
}
