package utils

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML removes markup from a post body and collapses whitespace.
// Tags are replaced by a space so "<p>a</p><p>b</p>" reads "a b".
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return CollapseWhitespace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		default:
			b.WriteByte(' ')
		}
	}
}

// CollapseWhitespace replaces non-breaking spaces and runs of whitespace with a single space.
func CollapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
