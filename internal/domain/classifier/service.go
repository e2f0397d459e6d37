package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
	"github.com/yanqian/dermaai/pkg/util"
)

// Service classifies skin and nail photos.
type Service interface {
	Classify(ctx context.Context, kind Kind, image []byte) (Result, error)
	Status() []Status
	// Warmup loads every model once. Failures are logged and retried on the
	// next request.
	Warmup(ctx context.Context)
	Close() error
}

type service struct {
	models map[Kind]*Classifier
	order  []Kind
	logger *slog.Logger
}

// NewService wires one classifier per configured model. Nothing is loaded yet.
func NewService(cfg Config, loader Loader, logger *slog.Logger) (Service, error) {
	svc := &service{
		models: make(map[Kind]*Classifier, 2),
		logger: logger.With("component", "classifier.service"),
	}
	for _, mc := range []ModelConfig{cfg.Skin, cfg.Nail} {
		if err := mc.Validate(); err != nil {
			return nil, err
		}
		svc.models[mc.Kind] = NewClassifier(mc, loader, logger)
		svc.order = append(svc.order, mc.Kind)
	}
	return svc, nil
}

// ParseKind validates a route parameter.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindSkin, KindNail:
		return k, nil
	default:
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("unknown classifier %q", raw), nil)
	}
}

func (s *service) Classify(ctx context.Context, kind Kind, image []byte) (Result, error) {
	clf, ok := s.models[kind]
	if !ok {
		return Result{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("unknown classifier %q", kind), nil)
	}
	cfg := clf.Config()

	pred, err := clf.Predict(ctx, image)
	switch {
	case err == nil:
	case apperrors.IsCode(err, apperrors.CodeArtifactMissing), apperrors.IsCode(err, apperrors.CodeArtifactLoadFailed):
		s.logger.Warn("classifier unavailable, serving demo output", "kind", kind, "error", err)
		return s.demo(cfg), nil
	default:
		return Result{}, err
	}

	label := pred.Label
	if cfg.TitleCaseLabels && label != UnknownLabel {
		label = titleCase(label)
	}
	return Result{
		Kind:       kind,
		Model:      cfg.ModelName(),
		Classes:    append([]string(nil), cfg.Labels...),
		Label:      label,
		Confidence: util.Round(pred.Probability, 4),
	}, nil
}

func (s *service) demo(cfg ModelConfig) Result {
	return Result{
		Kind:       cfg.Kind,
		Model:      "demo",
		Classes:    append([]string(nil), cfg.Labels...),
		Label:      cfg.DemoLabel,
		Confidence: cfg.DemoConfidence,
		Demo:       true,
		Notice:     fmt.Sprintf("%s model not available; showing demo output.", titleCase(string(cfg.Kind))),
	}
}

func (s *service) Status() []Status {
	out := make([]Status, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.models[k].Status())
	}
	return out
}

func (s *service) Warmup(ctx context.Context) {
	for _, k := range s.order {
		if ctx.Err() != nil {
			return
		}
		if err := s.models[k].Load(); err != nil {
			s.logger.Warn("model not loaded at startup, demo output will be served", "kind", k, "error", err)
		}
	}
}

func (s *service) Close() error {
	var errs []error
	for _, k := range s.order {
		if err := s.models[k].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// titleCase builds a fresh Caser per call; Casers are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
