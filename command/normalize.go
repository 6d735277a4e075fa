package command

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	germanFolder  = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")
	trailingPunct = regexp.MustCompile(`[^\p{L}\p{N}_\-]+$`)
)

// Normalize prepares comment text for matching: non-breaking spaces and
// whitespace runs collapse to one space, the text is composed (NFC) and
// lowercased, and German umlauts and ß are transliterated. Other accents are kept.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	t := strings.ReplaceAll(text, "\u00a0", " ")
	t = strings.Join(strings.Fields(t), " ")
	t = strings.ToLower(norm.NFC.String(t))
	return germanFolder.Replace(t)
}

// stripTrailingPunct removes trailing punctuation such as "." "," "!" "?".
func stripTrailingPunct(s string) string {
	return trailingPunct.ReplaceAllString(strings.TrimSpace(s), "")
}

// cleanName turns a user token into a display name: trailing punctuation
// and a leading @ are dropped.
func cleanName(s string) string {
	return strings.TrimLeft(stripTrailingPunct(s), "@")
}
