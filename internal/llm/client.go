// Package llm sends company chat messages to an OpenAI-compatible chat
// completions API.
package llm

import (
	"context"
	"errors"
	"log/slog"

	"bsanalyzer/internal/config"
)

var (
	// ErrRateLimited is returned when the local limiter or the provider
	// refuses the request.
	ErrRateLimited = errors.New("llm rate limit exceeded")
	// ErrUnavailable is returned for provider outages and timeouts.
	ErrUnavailable = errors.New("llm provider unavailable")
	// ErrEmptyResponse is returned when the provider answers without choices.
	ErrEmptyResponse = errors.New("llm returned no choices")
)

// Request is one chat turn for a company.
type Request struct {
	CompanyID    string
	SystemPrompt string
	Message      string
}

// Client completes chat requests.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

// New returns the OpenAI-compatible client, or the mock client when no API
// key is configured.
func New(cfg config.LLMConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		logger.Warn("No LLM API key configured, chat answers are mocked")
		return MockClient{}
	}
	return NewOpenAIClient(cfg, logger)
}
