package services

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed prompt-template.md
var defaultPromptTemplate string

func loadPromptTemplate(path string) (string, error) {
	if path == "" {
		return defaultPromptTemplate, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template %s: %w", path, err)
	}
	return string(raw), nil
}

// buildPrompt appends the language directive and the cleaned document to the
// static template. The directive is deliberately forceful: models drift back
// into the document's own language on long inputs unless told twice.
func buildPrompt(template, lang, cleanedContent string) string {
	instruction := fmt.Sprintf("\n\n**USER_LANGUAGE_PREFERENCE: %s** (write every \"comment\" field in this language, no exceptions; keep all JSON keys and \"status\" values exactly as specified)\n", lang)
	return template + instruction + "\n\n" + cleanedContent
}
