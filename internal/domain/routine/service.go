package routine

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// Service generates and exports skincare routines.
type Service interface {
	Generate(ctx context.Context, sessionID string, req Request) (Response, error)
	Current(ctx context.Context, sessionID string) (Plan, bool, error)
	Download(ctx context.Context, sessionID string) ([]byte, error)
}

// Generator produces free text for a prompt in a single call.
type Generator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// PlanStore caches the latest plan per session.
type PlanStore interface {
	SavePlan(ctx context.Context, sessionID string, plan Plan) error
	LoadPlan(ctx context.Context, sessionID string) (Plan, bool, error)
}

type service struct {
	cfg       Config
	generator Generator
	store     PlanStore
	logger    *slog.Logger
}

// NewService wires the routine generator. generator may be nil, in which case
// every request gets the sample plan.
func NewService(cfg Config, generator Generator, store PlanStore, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		generator: generator,
		store:     store,
		logger:    logger.With("component", "routine.service"),
	}
}

func (s *service) Generate(ctx context.Context, sessionID string, req Request) (Response, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "session is required", nil)
	}

	outcome := s.generate(ctx, req)
	resp := Response{Routine: outcome.Plan, Source: SourceLLM}
	if !outcome.Parsed {
		s.logger.Warn("routine fallback used", "reason", outcome.Reason)
		resp.Source = SourceFallback
		resp.Notice = fallbackNotice
	}

	if err := s.store.SavePlan(ctx, sessionID, resp.Routine); err != nil {
		s.logger.Warn("routine cache failed", "error", err)
	}
	return resp, nil
}

func (s *service) generate(ctx context.Context, req Request) ParseOutcome {
	if s.generator == nil {
		return Fallback("generator not configured")
	}
	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	text, err := s.generator.GenerateText(callCtx, s.cfg.Model, buildPrompt(req))
	if err != nil {
		return Fallback("generation failed: " + err.Error())
	}
	return ParsePlan(text)
}

func (s *service) Current(ctx context.Context, sessionID string) (Plan, bool, error) {
	plan, ok, err := s.store.LoadPlan(ctx, sessionID)
	if err != nil {
		return Plan{}, false, apperrors.Wrap(apperrors.CodeStorageError, "failed to load routine", err)
	}
	return plan, ok, nil
}

func (s *service) Download(ctx context.Context, sessionID string) ([]byte, error) {
	plan, ok, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var doc []byte
	if ok {
		doc, err = RenderPDF(&plan)
	} else {
		doc, err = RenderPDF(nil)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRenderFailed, "failed to render routine", err)
	}
	return doc, nil
}
