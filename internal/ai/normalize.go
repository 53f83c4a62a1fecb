package ai

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// Recommendable vehicle models. Order matters: the first match in prose wins.
const (
	ModelLYRIQ  = "LYRIQ"
	ModelVISTIQ = "VISTIQ"
)

var modelVocabulary = []string{ModelLYRIQ, ModelVISTIQ}

const (
	defaultConfidence = 0.75
	proseRationale    = "Based on AI analysis"
	defaultFinancing  = "3.9% APR lease with CHF 10,000 down payment"
)

func defaultSuggestedOptions() []string {
	return []string{"Premium Package", "Technology Package"}
}

func defaultSellingPoints() []string {
	return []string{"Swiss EV infrastructure", "Luxury and technology", "Environmental benefits"}
}

func defaultSwissBenefits() []string {
	return []string{
		"Swiss charging network compatibility",
		"Cantonal EV incentives may apply",
		"Environmental consciousness alignment",
	}
}

func defaultNextSteps() []string {
	return []string{"Schedule test drive", "Prepare TCO calculation", "Review financing options"}
}

// Normalize converts raw provider text into an AnalysisResult. It never fails: text
// that does not contain a decodable JSON object degrades to a prose result carrying
// the text verbatim in Analysis. Metadata is left for the caller to stamp.
func Normalize(rawText string) (result models.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fromProse(rawText)
		}
	}()

	if obj, ok := extractObject(rawText); ok {
		return fromObject(obj, rawText)
	}
	return fromProse(rawText)
}

// extractObject decodes the span from the first '{' to the last '}' as a JSON object.
func extractObject(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func fromObject(obj map[string]any, rawText string) models.AnalysisResult {
	recs, _ := first(obj, "recommendations").(map[string]any)
	// Recommendation keys are also accepted at the top level.
	lookupRec := func(keys ...string) any {
		if v := first(recs, keys...); v != nil {
			return v
		}
		return first(obj, keys...)
	}

	model := stringValue(first(obj, "recommended_model", "recommendedModel"))
	if model == "" {
		model = matchModel(rawText)
	}

	return models.AnalysisResult{
		RecommendedModel: model,
		ConfidenceScore:  confidence(first(obj, "confidence_score", "confidenceScore", "confidence")),
		Recommendations: models.Recommendations{
			ModelRationale: orDefault(
				stringValue(lookupRec("model_rationale", "modelRationale")), proseRationale),
			SuggestedOptions: listOrDefault(
				lookupRec("suggested_options", "suggestedOptions"), defaultSuggestedOptions),
			FinancingSuggestion: orDefault(
				stringValue(lookupRec("financing_suggestion", "financingSuggestion")), defaultFinancing),
			KeySellingPoints: listOrDefault(
				lookupRec("key_selling_points", "keySellingPoints"), defaultSellingPoints),
		},
		SwissBenefits: listOrDefault(first(obj, "swiss_benefits", "swissBenefits"), defaultSwissBenefits),
		NextSteps:     listOrDefault(first(obj, "next_steps", "nextSteps", "next_best_actions"), defaultNextSteps),
		Analysis:      stringValue(first(obj, "analysis")),
		Metadata:      models.ResultMetadata{Attempts: []models.ProviderAttempt{}},
	}
}

func fromProse(text string) models.AnalysisResult {
	return models.AnalysisResult{
		RecommendedModel: matchModel(text),
		ConfidenceScore:  defaultConfidence,
		Recommendations: models.Recommendations{
			ModelRationale:      proseRationale,
			SuggestedOptions:    defaultSuggestedOptions(),
			FinancingSuggestion: defaultFinancing,
			KeySellingPoints:    defaultSellingPoints(),
		},
		SwissBenefits: defaultSwissBenefits(),
		NextSteps:     defaultNextSteps(),
		Analysis:      text,
		Metadata:      models.ResultMetadata{Attempts: []models.ProviderAttempt{}},
	}
}

// matchModel returns the first vocabulary entry found in text, case-insensitively.
func matchModel(text string) string {
	upper := strings.ToUpper(text)
	for _, m := range modelVocabulary {
		if strings.Contains(upper, m) {
			return m
		}
	}
	return modelVocabulary[0]
}

// confidence reads a number or numeric string. Values above 1 and up to 100 are
// percentages. The result is clamped to [0, 1].
func confidence(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return defaultConfidence
		}
		f = parsed
	default:
		return defaultConfidence
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultConfidence
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	return math.Max(0, math.Min(1, f))
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// listOrDefault reads a list of strings (or a single string). Empty results use def.
func listOrDefault(v any, def func() []string) []string {
	var out []string
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = []string{s}
		}
	case []any:
		for _, item := range t {
			if s := renderValue(item); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return def()
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
