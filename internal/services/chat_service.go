package services

import (
	"context"
	"log/slog"
	"time"

	"bsanalyzer/internal/company"
	apierrors "bsanalyzer/internal/errors"
	"bsanalyzer/internal/infrastructure"
	"bsanalyzer/internal/llm"
)

// ChatService answers user messages with the company system prompt.
type ChatService struct {
	users     UserRepository
	workspace *company.Workspace
	client    llm.Client
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewChatService creates the chat service.
func NewChatService(users UserRepository, workspace *company.Workspace, client llm.Client, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		users:     users,
		workspace: workspace,
		client:    client,
		metrics:   metrics,
		logger:    logger.With(slog.String("service", "chat")),
	}
}

// Chat sends message to the LLM on behalf of username.
func (s *ChatService) Chat(ctx context.Context, username, message string) (string, error) {
	if message == "" {
		return "", apierrors.ErrMissingFields
	}
	user, err := lookupUser(ctx, s.users, username)
	if err != nil {
		return "", err
	}

	start := time.Now()
	answer, err := s.client.Complete(ctx, llm.Request{
		CompanyID:    user.CompanyID,
		SystemPrompt: s.workspace.LoadSystemPrompt(user.CompanyID),
		Message:      message,
	})
	s.metrics.RecordChat(ctx, s.client.Provider(), time.Since(start), err)
	if err != nil {
		return "", err
	}

	s.logger.DebugContext(ctx, "Chat answered",
		slog.String("username", username),
		slog.String("company_id", user.CompanyID),
		slog.Int("answer_length", len(answer)))
	return answer, nil
}
