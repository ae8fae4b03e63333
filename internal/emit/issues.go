package emit

import (
	"fmt"
	"sort"
	"strings"
)

// Issue codes shared by every binding. A binding reports the same code
// for the same violation regardless of target language.
const (
	CodeParseError    = "parse_error"
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeUnknownKey    = "unknown_key"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodePattern       = "pattern"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidConst  = "invalid_const"
	CodeInvalidFormat = "invalid_format"
	CodeNotUnique     = "not_unique"
)

// Issue is a single validation violation.
type Issue struct {
	Path    string // slash path to the offending field, e.g. /audio_metadata/confidence
	Code    string
	Message string
}

// Issues is a collection of violations that implements error. Bindings
// collect every violation before returning, so a caller sees the
// complete picture in one pass.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	var b strings.Builder
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s at %s", iss[i].Code, iss[i].Path)
	}
	if len(iss) > lim {
		fmt.Fprintf(&b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// Sorted returns the issues ordered by (path, code) for stable
// reporting and comparison.
func (iss Issues) Sorted() Issues {
	out := make(Issues, len(iss))
	copy(out, iss)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Paths returns the distinct field paths named by the issues, sorted.
func (iss Issues) Paths() []string {
	seen := make(map[string]bool, len(iss))
	var out []string
	for _, i := range iss {
		if !seen[i.Path] {
			seen[i.Path] = true
			out = append(out, i.Path)
		}
	}
	sort.Strings(out)
	return out
}

// AsIssues extracts Issues from an error.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	iss, ok := err.(Issues)
	return iss, ok
}
