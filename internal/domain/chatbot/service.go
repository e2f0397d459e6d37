package chatbot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/yanqian/dermaai/internal/infra/llm/groq"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
	"github.com/yanqian/dermaai/pkg/metrics"
	"github.com/yanqian/dermaai/pkg/util"
)

// Service answers dermatology questions.
type Service interface {
	Reply(ctx context.Context, sessionID string, req Request) (Response, error)
	History(ctx context.Context, sessionID string) ([]ChatTurn, error)
	Reset(ctx context.Context, sessionID string) error
}

// ChatClient is the chat-completion collaborator used for open questions.
type ChatClient interface {
	Complete(ctx context.Context, req groq.CompletionRequest) (groq.Completion, error)
}

type service struct {
	cfg    Config
	kb     KnowledgeBase
	store  HistoryStore
	client ChatClient
	logger *slog.Logger
}

// NewService wires the chatbot. client may be nil, in which case open
// questions get the labeled fallback reply.
func NewService(cfg Config, kb KnowledgeBase, store HistoryStore, client ChatClient, logger *slog.Logger) Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 5
	}
	return &service{
		cfg:    cfg,
		kb:     kb,
		store:  store,
		client: client,
		logger: logger.With("component", "chatbot.service"),
	}
}

func (s *service) Reply(ctx context.Context, sessionID string, req Request) (Response, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "session is required", nil)
	}
	query := strings.TrimSpace(req.Message)
	if query == "" {
		return Response{Reply: emptyQueryReply, Source: SourceValidation}, nil
	}
	lower := strings.ToLower(query)

	s.remember(ctx, sessionID, RoleUser, query)

	resp := s.route(ctx, sessionID, query, lower)
	s.remember(ctx, sessionID, RoleBot, resp.Reply)
	return resp, nil
}

func (s *service) route(ctx context.Context, sessionID, query, lower string) Response {
	if isGreeting(lower) {
		return Response{Reply: greetingReply, Intent: IntentGreeting, Source: SourceCanned}
	}
	if isCourtesy(lower) {
		return Response{Reply: courtesyReply, Intent: IntentCourtesy, Source: SourceCanned}
	}

	intent := DetectIntent(lower)
	entries, err := s.kb.Entries(ctx)
	if err != nil {
		s.logger.Warn("knowledge base unavailable", "error", err)
	}
	if entry, ok := MatchKnowledge(lower, entries); ok {
		return Response{
			Reply:   RenderHTML(knowledgeFields(intent, entry)),
			Intent:  intent,
			Source:  SourceKnowledgeBase,
			Matched: entry.Condition,
		}
	}

	fields, usage, err := s.askLLM(ctx, sessionID, query)
	if err != nil {
		s.logger.Warn("llm fallback used", "error", err)
		return Response{
			Reply:  RenderHTML([]Field{{Key: "Response", Text: unavailableText}}),
			Intent: intent,
			Source: SourceFallback,
		}
	}
	return Response{Reply: RenderHTML(fields), Intent: intent, Source: SourceLLM, Usage: usage.Ptr()}
}

func (s *service) askLLM(ctx context.Context, sessionID, query string) ([]Field, metrics.TokenUsage, error) {
	if s.client == nil {
		return nil, metrics.TokenUsage{}, errors.New("chat client not configured")
	}
	history, err := s.store.Turns(ctx, sessionID)
	if err != nil {
		s.logger.Warn("history read failed", "error", err)
	}
	prompt := buildPrompt(s.cfg.Prompt, history, s.cfg.HistoryWindow, query)

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	resp, err := s.client.Complete(callCtx, groq.CompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Messages:    []groq.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "chat completion failed", err)
	}
	content := resp.Text()
	if content == "" {
		return nil, metrics.TokenUsage{}, apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "chat completion returned no content", nil)
	}
	usage := metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return ParseReply(content), usage, nil
}

func (s *service) remember(ctx context.Context, sessionID string, role Role, content string) {
	turn := ChatTurn{Role: role, Content: content, CreatedAt: util.NowUTC()}
	if err := s.store.AppendTurn(ctx, sessionID, turn, s.cfg.HistoryLimit); err != nil {
		s.logger.Warn("history append failed", "role", role, "error", err)
	}
}

func (s *service) History(ctx context.Context, sessionID string) ([]ChatTurn, error) {
	turns, err := s.store.Turns(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to load history", err)
	}
	return turns, nil
}

func (s *service) Reset(ctx context.Context, sessionID string) error {
	if err := s.store.ClearTurns(ctx, sessionID); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "failed to clear history", err)
	}
	return nil
}
