package conversion

import (
	"strings"
	"unicode"
)

// headingSlug lowercases text, turns spaces into hyphens and drops everything that is not a letter,
// digit, hyphen or underscore.
func headingSlug(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r == ' ':
			b.WriteRune('-')
		case r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}
