package shell

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Quote returns s quoted for a POSIX shell so that it expands to exactly
// one word with the original value. Strings that need no quoting are
// returned unchanged.
func Quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err == nil {
		return q
	}
	// POSIX has no escapes for non-printable runes; single quotes still
	// preserve every byte except NUL, which cannot reach argv anyway.
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Join quotes every word and joins them with spaces.
func Join(words ...string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = Quote(w)
	}
	return strings.Join(quoted, " ")
}
