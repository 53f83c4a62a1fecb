package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/evinsight/internal/api/middleware"
	"github.com/kiranshivaraju/evinsight/internal/api/response"
	"github.com/kiranshivaraju/evinsight/internal/observability"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	CORSOrigins []string

	HealthHandler         http.HandlerFunc
	AnalyzeHandler        http.HandlerFunc
	ProviderStatusHandler http.HandlerFunc
	ListRunsHandler       http.HandlerFunc
	GetRunHandler         http.HandlerFunc
	MetricsHandler        http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders: []string{mw.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(observability.MetricsMiddleware)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Route("/api/v1/ai", func(r chi.Router) {
		r.Post("/analyze-customer", orNotImplemented(deps.AnalyzeHandler))
		r.Get("/provider-status", orNotImplemented(deps.ProviderStatusHandler))
		r.Get("/runs", orNotImplemented(deps.ListRunsHandler))
		r.Get("/runs/{runID}", orNotImplemented(deps.GetRunHandler))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
