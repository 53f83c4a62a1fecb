package handler

import (
	"net/http"

	"github.com/kiranshivaraju/evinsight/internal/api/response"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// StatusReporter defines the interface the provider-status handler depends on.
type StatusReporter interface {
	Report() models.ProviderStatus
}

// NewProviderStatusHandler returns an http.HandlerFunc for GET /api/v1/ai/provider-status.
func NewProviderStatusHandler(reporter StatusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, reporter.Report())
	}
}
