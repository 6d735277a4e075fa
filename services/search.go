package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const DefaultSearchURL = "https://api.duckduckgo.com/"

type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text string `json:"Text"`
	} `json:"RelatedTopics"`
}

// SearchClient queries the DuckDuckGo instant answer API.
type SearchClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewSearchClient creates a SearchClient.
func NewSearchClient(baseURL string, hc *http.Client, logger *zap.Logger) *SearchClient {
	return &SearchClient{baseURL: baseURL, http: hc, logger: logger.Named("search")}
}

// InstantAnswer returns "<heading>: a | b | c" built from up to three snippets,
// or "" when nothing useful is found or the call fails.
func (s *SearchClient) InstantAnswer(ctx context.Context, query string) string {
	params := url.Values{
		"q":           {query},
		"format":      {"json"},
		"no_redirect": {"1"},
		"no_html":     {"1"},
	}

	var ia instantAnswer
	if err := getJSON(ctx, s.http, s.baseURL+"?"+params.Encode(), &ia); err != nil {
		s.logger.Warn("Instant answer lookup failed", zap.String("query", query), zap.Error(err))
		return ""
	}

	var snippets []string
	if abstract := strings.TrimSpace(ia.AbstractText); abstract != "" {
		snippets = append(snippets, abstract)
	}
	for _, topic := range ia.RelatedTopics {
		if len(snippets) >= 3 {
			break
		}
		if txt := strings.TrimSpace(topic.Text); txt != "" {
			snippets = append(snippets, txt)
		}
	}
	if len(snippets) == 0 {
		return ""
	}

	title := strings.TrimSpace(ia.Heading)
	if title == "" {
		title = query
	}
	return title + ": " + strings.Join(snippets, " | ")
}
