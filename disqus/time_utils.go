package disqus

import (
	"strings"
	"time"
)

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseCreatedAt parses an API creation timestamp. Timestamps without a zone
// are UTC. ok is false for empty or unparseable input.
func ParseCreatedAt(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// CreatedAtUnix is ParseCreatedAt as a unix timestamp.
func CreatedAtUnix(s string) (int64, bool) {
	t, ok := ParseCreatedAt(s)
	if !ok {
		return 0, false
	}
	return t.Unix(), true
}
