package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisRun is the audit record of one orchestration call. Runs are written after the
// result is returned and are never used to answer later calls.
type AnalysisRun struct {
	ID               uuid.UUID         `db:"id"                json:"id"`
	Provider         string            `db:"provider"          json:"provider"`
	Model            string            `db:"model"             json:"model"`
	RecommendedModel string            `db:"recommended_model" json:"recommended_model"`
	Confidence       float64           `db:"confidence"        json:"confidence"`
	IsFallback       bool              `db:"is_fallback"       json:"is_fallback"`
	Attempts         []ProviderAttempt `db:"attempts"          json:"attempts"`
	CreatedAt        time.Time         `db:"created_at"        json:"created_at"`
}
