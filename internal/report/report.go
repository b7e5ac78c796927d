// Package report turns a model's free-form reply into the structured report
// served to the extension. The backend validates shape only; category
// semantics (status colors, comments) belong to the model and the UI.
package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Report is the parsed model output. Kept as a loose map: the set of
// categories is owned by the prompt schema, not by this package.
type Report map[string]any

// Metadata is stamped onto every generated report before caching.
type Metadata struct {
	ContentHash    string `json:"content_hash"`
	AnalyzedAt     string `json:"analyzed_at"`
	AnalyzedURL    string `json:"analyzed_url"`
	ModelUsed      string `json:"model_used"`
	OutputLanguage string `json:"output_language"`
}

var codeFenceRe = regexp.MustCompile("```json\n?|```\n?")

// Parse extracts the report object from a raw model reply. Replies arrive
// wrapped in Markdown code fences, surrounded by prose, or — when quota runs
// out upstream — as a full HTML error page, which must be rejected outright
// rather than fed to the JSON parser.
func Parse(raw string) (Report, error) {
	text := strings.TrimSpace(codeFenceRe.ReplaceAllString(raw, ""))

	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return nil, fmt.Errorf("HTML received instead of JSON (API error or quota exceeded)")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in model reply")
	}
	text = text[start : end+1]

	var r Report
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, fmt.Errorf("cannot parse model reply as JSON: %w", err)
	}
	return r, nil
}

// Validate checks the required top-level fields. detected_language is only
// enforced when the prompt asks the model to report it.
func Validate(r Report, requireDetectedLanguage bool) error {
	var missing []string

	if s, ok := r["site_name"].(string); !ok || strings.TrimSpace(s) == "" {
		missing = append(missing, "site_name")
	}
	if _, ok := r["categories"].(map[string]any); !ok {
		missing = append(missing, "categories")
	}
	if requireDetectedLanguage {
		if s, ok := r["detected_language"].(string); !ok || strings.TrimSpace(s) == "" {
			missing = append(missing, "detected_language")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("invalid report: missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DetectedLanguage returns the language the model detected in the source
// document, or "" when absent.
func DetectedLanguage(r Report) string {
	s, _ := r["detected_language"].(string)
	return s
}

// Stamp attaches generation metadata to the report in place.
func Stamp(r Report, meta Metadata) {
	if meta.AnalyzedAt == "" {
		meta.AnalyzedAt = time.Now().UTC().Format(time.RFC3339)
	}
	r["metadata"] = meta
}
