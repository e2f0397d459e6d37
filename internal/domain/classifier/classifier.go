package classifier

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

type engineRef struct {
	engine Engine
}

// Classifier owns one model. The engine is loaded on first use behind a
// per-model lock; once stored it is read without locking.
type Classifier struct {
	cfg    ModelConfig
	loader Loader
	logger *slog.Logger

	engine  atomic.Pointer[engineRef]
	mu      sync.Mutex
	lastErr atomic.Value
}

// NewClassifier builds a classifier without touching the artifact.
func NewClassifier(cfg ModelConfig, loader Loader, logger *slog.Logger) *Classifier {
	return &Classifier{
		cfg:    cfg,
		loader: loader,
		logger: logger.With("component", "classifier", "kind", string(cfg.Kind)),
	}
}

// Config returns the immutable model configuration.
func (c *Classifier) Config() ModelConfig {
	return c.cfg
}

// Load makes sure an engine is available. Failures are not cached, so the
// next call retries.
func (c *Classifier) Load() error {
	_, err := c.ensureEngine()
	return err
}

func (c *Classifier) ensureEngine() (Engine, error) {
	if ref := c.engine.Load(); ref != nil {
		return ref.engine, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ref := c.engine.Load(); ref != nil {
		return ref.engine, nil
	}
	engine, err := c.loader.Load(c.cfg)
	if err != nil {
		if apperrors.CodeOf(err) == "" {
			err = apperrors.Wrap(apperrors.CodeArtifactLoadFailed, "failed to load model", err)
		}
		c.lastErr.Store(err.Error())
		c.logger.Error("model load failed", "model", c.cfg.ModelPath, "error", err)
		return nil, err
	}
	c.engine.Store(&engineRef{engine: engine})
	c.lastErr.Store("")
	c.logger.Info("model loaded", "model", c.cfg.ModelPath)
	return engine, nil
}

// Predict decodes, preprocesses and classifies one image.
func (c *Classifier) Predict(ctx context.Context, data []byte) (Prediction, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return Prediction{}, apperrors.Wrap(apperrors.CodeDecodeFailed, "could not read the uploaded image", err)
	}
	engine, err := c.ensureEngine()
	if err != nil {
		return Prediction{}, err
	}
	input, shape := Preprocess(img, c.cfg)
	row, err := engine.Run(ctx, input, shape)
	if err != nil {
		return Prediction{}, apperrors.Wrap(apperrors.CodeInferenceFailed, "prediction failed", err)
	}
	if len(row) == 0 {
		return Prediction{}, apperrors.Wrap(apperrors.CodeInferenceFailed, "model returned no scores", nil)
	}
	if len(row) != len(c.cfg.Labels) {
		c.logger.Warn("model output does not match label count", "outputs", len(row), "labels", len(c.cfg.Labels))
	}
	probs, err := Probabilities(row)
	if err != nil {
		return Prediction{}, err
	}
	return pick(probs, c.cfg.Labels), nil
}

// Status reports load state without triggering a load.
func (c *Classifier) Status() Status {
	st := Status{Kind: c.cfg.Kind, Model: c.cfg.ModelName(), Loaded: c.engine.Load() != nil}
	if v, ok := c.lastErr.Load().(string); ok {
		st.LastError = v
	}
	return st
}

// Close releases the engine if one was loaded.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.engine.Swap(nil)
	if ref == nil {
		return nil
	}
	return ref.engine.Close()
}
