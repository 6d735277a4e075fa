package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	DefaultJokeURL = "https://v2.jokeapi.dev/joke/Any"

	jokeFallback = "Kein Witz gefunden."
)

type jokeResponse struct {
	Error    bool   `json:"error"`
	Type     string `json:"type"`
	Joke     string `json:"joke"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
}

// JokeClient fetches random German one-liners.
type JokeClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewJokeClient creates a JokeClient against baseURL.
func NewJokeClient(baseURL string, hc *http.Client, logger *zap.Logger) *JokeClient {
	return &JokeClient{baseURL: baseURL, http: hc, logger: logger.Named("joke")}
}

// Joke returns a random joke or a fixed fallback text.
func (j *JokeClient) Joke(ctx context.Context) string {
	params := url.Values{
		"lang":           {"de"},
		"type":           {"single"},
		"blacklistFlags": {"nsfw,religious,political,racist,sexist,explicit"},
	}

	var resp jokeResponse
	if err := getJSON(ctx, j.http, j.baseURL+"?"+params.Encode(), &resp); err != nil {
		j.logger.Warn("Joke lookup failed", zap.Error(err))
		return jokeFallback
	}
	if resp.Error {
		return jokeFallback
	}

	if resp.Type == "twopart" {
		setup, delivery := strings.TrimSpace(resp.Setup), strings.TrimSpace(resp.Delivery)
		switch {
		case setup != "" && delivery != "":
			return setup + "\n" + delivery
		case setup != "":
			return setup
		case delivery != "":
			return delivery
		}
		return jokeFallback
	}

	if joke := strings.TrimSpace(resp.Joke); joke != "" {
		return joke
	}
	return jokeFallback
}

// getJSON performs a GET and decodes a JSON body, failing on HTTP errors.
func getJSON(ctx context.Context, hc *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
