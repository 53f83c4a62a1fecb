package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kiranshivaraju/evinsight/internal/api/response"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// MaxBodyBytes bounds the analyze request body.
const MaxBodyBytes = 1 << 20

// Analyzer defines the interface the analyze handler depends on.
type Analyzer interface {
	AnalyzeCustomer(ctx context.Context, profile, prefs map[string]any) models.AnalysisResult
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/ai/analyze-customer.
// Empty or missing customer and preference objects are valid input.
func NewAnalyzeHandler(svc Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

		var req models.AnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE",
					"Request body exceeds 1 MiB", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result := svc.AnalyzeCustomer(r.Context(), req.CustomerProfile, req.VehiclePreferences)
		response.JSON(w, result)
	}
}
