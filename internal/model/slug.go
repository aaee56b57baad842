package model

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify converts s to its slug form: accents folded to ASCII, characters
// other than letters, digits, underscores, hyphens and spaces removed,
// lowercased, and runs of hyphens or whitespace replaced with one hyphen.
func Slugify(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	out := slugStrip.ReplaceAllString(b.String(), "")
	out = strings.ToLower(strings.TrimSpace(out))
	return slugCollapse.ReplaceAllString(out, "-")
}

// IsSlug reports whether s is non-empty and already in slug form.
func IsSlug(s string) bool {
	return s != "" && s == Slugify(s)
}
