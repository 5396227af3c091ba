package labels

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the registry key for raw provider text: trimmed,
// NFC-composed and lowercased. Distinct Unicode spellings of the same
// name ("Café" composed or decomposed) map to one key.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	// cases.Caser is stateful and not safe for concurrent use
	return cases.Lower(language.Und).String(norm.NFC.String(trimmed))
}
