package disqus

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// codeObjectNotFound is the API error code for "A requested object was not found".
const codeObjectNotFound = 8

// APIError is returned when the API answers with an HTTP error status or a
// non-zero envelope code.
type APIError struct {
	Status int
	Code   int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("disqus api error (HTTP %d, code %d): %s", e.Status, e.Code, e.Body)
}

// IsThreadClosed reports whether err says the target thread no longer accepts posts.
func IsThreadClosed(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "thread") && strings.Contains(msg, "closed")
}

// IsNotFound reports whether err means the requested object does not exist
// (anymore), e.g. a blacklist entry that was already removed by hand.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusNotFound || apiErr.Code == codeObjectNotFound
}
