package ir

import (
	"path"
	"strings"
	"unicode"
)

// EntityName derives a type name from a schema title, or from the
// document filename when no title is declared. "transcription.v1" and
// "Voice Transcription Event" both become PascalCase identifiers.
func EntityName(title, docPath string) string {
	if name := Pascal(title); name != "" {
		return name
	}
	base := path.Base(docPath)
	base = strings.TrimSuffix(base, ".schema.json")
	base = strings.TrimSuffix(base, ".json")
	return Pascal(base)
}

// Pascal converts a name with space, dot, dash, or underscore
// separators into PascalCase, dropping any other non-alphanumeric
// runes.
func Pascal(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '.' || r == '-' || r == '_':
			upper = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SnakeCase converts a PascalCase or camelCase identifier to
// snake_case. Field names in schemas are already snake_case; this is
// used when deriving file names from entity names.
func SnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
