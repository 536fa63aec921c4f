package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"bsanalyzer/internal/config"
)

// OpenAIClient calls a chat completions endpoint such as DeepSeek's.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenAIClient builds a client for cfg.BaseURL. A non-positive RPS
// disables the local limiter.
func NewOpenAIClient(cfg config.LLMConfig, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultLLMModel
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With(slog.String("component", "llm")),
	}
}

// Provider names the client in logs and metrics.
func (c *OpenAIClient) Provider() string { return "openai-compatible" }

// Complete sends the system prompt and the user message and returns the
// first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Message},
		},
	})
	if err != nil {
		err = c.classify(ctx, err)
		c.logger.WarnContext(ctx, "Chat completion failed",
			slog.String("company_id", req.CompanyID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.DebugContext(ctx, "Chat completion succeeded",
		slog.String("company_id", req.CompanyID),
		slog.String("model", resp.Model),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
		slog.Duration("duration", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

// classify maps provider failures onto the package errors.
func (c *OpenAIClient) classify(parent context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w: request timed out after %s", ErrUnavailable, c.timeout)
	}

	var status int
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.Is(err, context.Canceled):
		return err
	default:
		// No response at all: dial or transport failure.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("chat completion: %w", err)
}
