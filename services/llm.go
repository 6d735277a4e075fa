package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"disqus-bot/models"
)

const (
	DefaultLLMBaseURL = "https://api.groq.com/openai/v1"
	DefaultLLMModel   = "llama-3.3-70b-versatile"
)

// ErrLLMNotConfigured is returned when no API key is set.
var ErrLLMNotConfigured = errors.New("llm api key not configured")

// ChatRequest is a single system+user completion request.
type ChatRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int64
}

// LLMClient sends chat completions to an OpenAI-compatible endpoint behind a
// circuit breaker.
type LLMClient struct {
	client  *openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewLLMClient creates an LLMClient. A client without an API key is valid and
// fails every call with ErrLLMNotConfigured.
func NewLLMClient(cfg models.LLMConfig, logger *zap.Logger) *LLMClient {
	logger = logger.Named("llm")

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultLLMBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultLLMModel
	}

	c := &LLMClient{model: model, logger: logger}
	if cfg.APIKey != "" {
		client := openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
			option.WithRequestTimeout(20*time.Second),
			option.WithMaxRetries(0),
		)
		c.client = &client
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// Chat returns the trimmed completion text.
func (c *LLMClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if c.client == nil {
		return "", ErrLLMNotConfigured
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(req.MaxTokens),
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return "", fmt.Errorf("llm circuit open: %w", err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	resp := result.(*openai.ChatCompletion)
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
