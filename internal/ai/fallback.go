package ai

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/evinsight/pkg/models"
)

const (
	FallbackProvider = "fallback"
	FallbackModel    = "rules"
	FallbackNote     = "AI providers unavailable"

	fallbackConfidence = 0.85
	defaultCanton      = "ZH"
	// Budgets at or above this (CHF) point private buyers at the larger SUV.
	vistiqBudgetThreshold = 120000
)

var privateCustomerTypes = map[string]bool{
	"private":    true,
	"individual": true,
	"personal":   true,
}

// FallbackResult derives a deterministic recommendation from the input alone. It is
// used when no provider is configured or every attempt failed.
func FallbackResult(profile, prefs map[string]any, now time.Time) models.AnalysisResult {
	// Only string values are trusted here; anything else takes the default.
	customerType := strings.ToLower(stringValue(first(profile, "customerType", "customer_type")))
	if customerType == "" {
		customerType = "private"
	}
	canton := strings.ToUpper(stringValue(first(profile, "canton")))
	if canton == "" {
		canton = defaultCanton
	}
	business := !privateCustomerTypes[customerType]

	model := ModelLYRIQ
	if business {
		model = ModelVISTIQ
	} else if budget, ok := parseAmount(first(prefs, "budget_max", "budgetMax")); ok && budget >= vistiqBudgetThreshold {
		model = ModelVISTIQ
	}

	financing := defaultFinancing
	if business {
		financing = "Business lease with VAT-deductible monthly rates"
	}

	sellingPoints := []string{modelHighlight(model), "Award-winning design", "Advanced technology features", "Excellent resale value"}
	if name := customerName(profile); name != "" {
		sellingPoints = append(sellingPoints, fmt.Sprintf("Personal consultation prepared for %s", name))
	}

	return models.AnalysisResult{
		RecommendedModel: model,
		ConfidenceScore:  fallbackConfidence,
		Recommendations: models.Recommendations{
			ModelRationale: fmt.Sprintf(
				"Based on customer profile, %s offers the best balance for %s customers in %s", model, customerType, canton),
			SuggestedOptions:    []string{"Premium Package", "Advanced Driver Assistance", "Panoramic Sunroof"},
			FinancingSuggestion: financing,
			KeySellingPoints:    sellingPoints,
		},
		SwissBenefits: []string{
			fmt.Sprintf("Kanton %s EV incentives available", canton),
			"Swiss charging network compatibility",
			fmt.Sprintf("Tax advantages for %s customers", customerType),
			"Environmental consciousness alignment",
		},
		NextSteps: []string{"Schedule test drive", "Prepare detailed TCO calculation", "Review financing options"},
		Metadata: models.ResultMetadata{
			Provider:    FallbackProvider,
			Model:       FallbackModel,
			GeneratedAt: now.UTC(),
			IsFallback:  true,
			Note:        FallbackNote,
			Attempts:    []models.ProviderAttempt{},
		},
	}
}

func modelHighlight(model string) string {
	if model == ModelVISTIQ {
		return "Three-row luxury SUV with room for family or executive passengers"
	}
	return "502km range suits Swiss commuting and alpine trips"
}

// parseAmount reads a CHF amount from a number or a string such as "CHF 120'000".
func parseAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, strings.SplitN(t, ".", 2)[0])
		if digits == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(digits, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
