package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// MaxPromptChars caps the characters (runes) sent to a provider, system prompt included.
const MaxPromptChars = 50000

const (
	notSpecified    = "not specified"
	truncatedMarker = "\n[truncated]"
	// Sections that would shrink below this many runes are dropped instead.
	minSectionRunes = 200
	// Each core field is capped so the response instructions always fit.
	maxFieldRunes = 1000
)

const systemPrompt = "You are a CADILLAC EV sales consultant expert in the Swiss market. " +
	"Provide detailed, professional analysis and recommendations."

const marketContext = `SWISS MARKET CONTEXT:
- EV adoption rate: 32% year-over-year growth
- Luxury EV segment: Growing 45% annually
- Government incentives available
- Excellent charging infrastructure

CADILLAC EV MODELS:
- LYRIQ: 100kWh battery, 502km range, CHF 82,900-96,900
- VISTIQ: New luxury SUV, premium features, CHF 120,000+`

const responseInstructions = `Respond with a single JSON object and nothing else, using these keys:
- "recommended_model": "LYRIQ" or "VISTIQ"
- "confidence_score": number between 0 and 1
- "recommendations": {"model_rationale": string, "suggested_options": [string], "financing_suggestion": string, "key_selling_points": [string]}
- "swiss_benefits": [string] (taxes, incentives, infrastructure)
- "next_steps": [string] (next best actions for the sales team)
- "analysis": string (competitive position vs. BMW iX and Mercedes EQS, risks and mitigations)`

// Profile and preference keys rendered in the core prompt. Anything else is passed
// along as low-priority additional detail.
var (
	profileCoreKeys = []string{
		"name", "firstName", "first_name", "lastName", "last_name",
		"customerType", "customer_type", "city", "canton", "age", "email", "phone",
	}
	notesKeys       = []string{"notes", "note", "comments"}
	historyKeys     = []string{"interactionHistory", "interaction_history", "interactions"}
	preferencesKeys = []string{
		"budget_min", "budgetMin", "budget_max", "budgetMax",
		"usage", "features", "timeline",
	}
)

// FormatRequest builds the provider-agnostic request for one customer analysis.
// It never fails: missing values render as "not specified", and the payload is kept
// within MaxPromptChars by cutting interaction history first, then notes, then
// additional details.
func FormatRequest(profile, prefs map[string]any) models.NormalizedRequest {
	core, truncated := corePrompt(profile, prefs)

	// Ordered most to least important; trimming walks this list backwards.
	sections := []string{
		section("ADDITIONAL DETAILS", extraDetails(profile, prefs)),
		section("SALESPERSON NOTES", renderValue(first(profile, notesKeys...))),
		section("INTERACTION HISTORY", renderHistory(first(profile, historyKeys...))),
	}

	limit := MaxPromptChars - utf8.RuneCountInString(systemPrompt)

	total := utf8.RuneCountInString(core)
	for _, s := range sections {
		total += utf8.RuneCountInString(s)
	}

	for i := len(sections) - 1; i >= 0 && total > limit; i-- {
		n := utf8.RuneCountInString(sections[i])
		if n == 0 {
			continue
		}
		truncated = true
		keep := n - (total - limit) - utf8.RuneCountInString(truncatedMarker)
		if keep < minSectionRunes {
			sections[i] = ""
			total -= n
			continue
		}
		sections[i] = truncateRunes(sections[i], keep) + truncatedMarker
		total = total - n + utf8.RuneCountInString(sections[i])
	}

	prompt := core + strings.Join(sections, "")
	if utf8.RuneCountInString(prompt) > limit {
		truncated = true
		prompt = truncateRunes(prompt, limit)
	}

	return models.NormalizedRequest{
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		Truncated:    truncated,
	}
}

func corePrompt(profile, prefs map[string]any) (string, bool) {
	truncated := false
	f := func(s string) string {
		if utf8.RuneCountInString(s) > maxFieldRunes {
			truncated = true
			return truncateRunes(s, maxFieldRunes) + "..."
		}
		return s
	}

	var b strings.Builder
	b.WriteString("Analyze this customer profile for CADILLAC EV recommendations in Switzerland.\n\n")

	b.WriteString("CUSTOMER PROFILE:\n")
	fmt.Fprintf(&b, "- Name: %s\n", f(orNotSpecified(customerName(profile))))
	fmt.Fprintf(&b, "- Type: %s\n", f(field(profile, "customerType", "customer_type")))
	fmt.Fprintf(&b, "- Location: %s, %s\n", f(field(profile, "city")), f(field(profile, "canton")))
	fmt.Fprintf(&b, "- Age: %s\n", f(field(profile, "age")))
	fmt.Fprintf(&b, "- Email: %s\n", f(field(profile, "email")))
	fmt.Fprintf(&b, "- Phone: %s\n\n", f(field(profile, "phone")))

	b.WriteString("VEHICLE PREFERENCES:\n")
	fmt.Fprintf(&b, "- Budget Range: %s - %s CHF\n",
		f(field(prefs, "budget_min", "budgetMin")), f(field(prefs, "budget_max", "budgetMax")))
	fmt.Fprintf(&b, "- Usage: %s\n", f(field(prefs, "usage")))
	fmt.Fprintf(&b, "- Features: %s\n", f(field(prefs, "features")))
	fmt.Fprintf(&b, "- Timeline: %s\n\n", f(field(prefs, "timeline")))

	b.WriteString(marketContext)
	b.WriteString("\n\n")
	b.WriteString(responseInstructions)
	b.WriteString("\n")
	return b.String(), truncated
}

func section(title, body string) string {
	if body == "" {
		return ""
	}
	return "\n" + title + ":\n" + body + "\n"
}

// extraDetails renders profile and preference fields the core prompt does not name,
// sorted by key so the payload is deterministic.
func extraDetails(profile, prefs map[string]any) string {
	skip := make(map[string]bool)
	for _, keys := range [][]string{profileCoreKeys, notesKeys, historyKeys, preferencesKeys} {
		for _, k := range keys {
			skip[k] = true
		}
	}

	var lines []string
	for _, m := range []map[string]any{profile, prefs} {
		keys := make([]string, 0, len(m))
		for k := range m {
			if !skip[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := renderValue(m[k]); v != "" {
				lines = append(lines, fmt.Sprintf("- %s: %s", k, v))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func renderHistory(v any) string {
	items, ok := v.([]any)
	if !ok {
		return renderValue(v)
	}
	var lines []string
	for _, item := range items {
		if s := renderValue(item); s != "" {
			lines = append(lines, "- "+s)
		}
	}
	return strings.Join(lines, "\n")
}

func customerName(profile map[string]any) string {
	if n := renderValue(first(profile, "name")); n != "" {
		return n
	}
	return strings.TrimSpace(renderValue(first(profile, "firstName", "first_name")) + " " +
		renderValue(first(profile, "lastName", "last_name")))
}

// field renders the first present key, or "not specified".
func field(m map[string]any, keys ...string) string {
	return orNotSpecified(renderValue(first(m, keys...)))
}

// first returns the value of the first key present in m. A nil map has no keys.
func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func orNotSpecified(s string) string {
	if s == "" {
		return notSpecified
	}
	return s
}

// renderValue turns a decoded JSON value into prompt text. Empty values render as "".
func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return joinNonEmpty(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, renderValue(item))
		}
		return joinNonEmpty(parts)
	case map[string]any:
		if len(t) == 0 {
			return ""
		}
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func joinNonEmpty(parts []string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
