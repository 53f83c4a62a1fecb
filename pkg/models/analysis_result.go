package models

import "time"

// AnalysisResult is the canonical output of a customer analysis, independent of which
// provider produced it. Every field is always populated; slices are never nil.
type AnalysisResult struct {
	RecommendedModel string          `json:"recommended_model"`
	ConfidenceScore  float64         `json:"confidence_score"`
	Recommendations  Recommendations `json:"recommendations"`
	SwissBenefits    []string        `json:"swiss_benefits"`
	NextSteps        []string        `json:"next_steps"`
	Analysis         string          `json:"analysis"`
	Metadata         ResultMetadata  `json:"metadata"`
}

// Recommendations holds the salesperson-facing guidance for the recommended model.
type Recommendations struct {
	ModelRationale      string   `json:"model_rationale"`
	SuggestedOptions    []string `json:"suggested_options"`
	FinancingSuggestion string   `json:"financing_suggestion"`
	KeySellingPoints    []string `json:"key_selling_points"`
}

// ResultMetadata records where a result came from.
type ResultMetadata struct {
	Provider    string            `json:"provider"`
	Model       string            `json:"model"`
	GeneratedAt time.Time         `json:"generated_at"`
	IsFallback  bool              `json:"is_fallback"`
	Note        string            `json:"note"`
	Attempts    []ProviderAttempt `json:"attempts"`
}

// ProviderAttempt summarizes one adapter attempt made while producing a result.
type ProviderAttempt struct {
	Provider   string    `json:"provider"`
	Succeeded  bool      `json:"succeeded"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}
