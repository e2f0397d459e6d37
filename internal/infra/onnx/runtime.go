package onnx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/yanqian/dermaai/internal/domain/classifier"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// Runtime owns the process wide onnxruntime environment and builds engines.
type Runtime struct {
	libraryPath string
	logger      *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewRuntime defers environment initialisation until the first model load.
func NewRuntime(libraryPath string, logger *slog.Logger) *Runtime {
	return &Runtime{
		libraryPath: strings.TrimSpace(libraryPath),
		logger:      logger.With("component", "onnx.runtime"),
	}
}

func (r *Runtime) ensureEnvironment() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || ort.IsInitialized() {
		r.started = true
		return nil
	}
	if r.libraryPath != "" {
		ort.SetSharedLibraryPath(r.libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	r.started = true
	r.logger.Info("onnxruntime environment initialised", "library", r.libraryPath)
	return nil
}

// Load implements classifier.Loader.
func (r *Runtime) Load(cfg classifier.ModelConfig) (classifier.Engine, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.CodeArtifactMissing, "model not found: "+cfg.ModelPath, err)
		}
		return nil, apperrors.Wrap(apperrors.CodeArtifactLoadFailed, "model not readable: "+cfg.ModelPath, err)
	}
	if err := r.ensureEnvironment(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeArtifactLoadFailed, "onnxruntime unavailable", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeArtifactLoadFailed, "failed to inspect model", err)
	}
	in, err := pickTensor(inputs, cfg.InputName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeArtifactLoadFailed, "model input", err)
	}
	out, err := pickTensor(outputs, cfg.OutputName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeArtifactLoadFailed, "model output", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, []string{in.Name}, []string{out.Name}, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeArtifactLoadFailed, "failed to create onnx session", err)
	}
	r.logger.Info("onnx session created", "model", cfg.ModelPath, "input", in.Name, "output", out.Name, "output_dims", []int64(out.Dimensions))
	return &Engine{session: session, outputShape: concreteShape(out.Dimensions)}, nil
}

// Close tears the environment down after every engine has been closed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	r.started = false
	return ort.DestroyEnvironment()
}

func pickTensor(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, errors.New("model declares no tensors")
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("tensor %q not found", name)
}

// concreteShape pins dynamic dimensions (batch) to 1.
func concreteShape(dims ort.Shape) ort.Shape {
	out := make([]int64, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return ort.NewShape(out...)
}

// Engine runs a single classifier session. Tensors are allocated per call so
// concurrent Run calls never share buffers.
type Engine struct {
	session     *ort.DynamicAdvancedSession
	outputShape ort.Shape
}

// Run implements classifier.Engine.
func (e *Engine) Run(ctx context.Context, input []float32, shape []int64) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inTensor, err := ort.NewTensor(ort.NewShape(shape...), input)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](e.outputShape)
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outTensor.Destroy()

	if err := e.session.Run([]ort.ArbitraryTensor{inTensor}, []ort.ArbitraryTensor{outTensor}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	return firstRow(outTensor.GetData(), e.outputShape), nil
}

// Close implements classifier.Engine.
func (e *Engine) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

func firstRow(data []float32, shape ort.Shape) []float32 {
	width := len(data)
	if len(shape) > 0 && shape[len(shape)-1] > 0 && int(shape[len(shape)-1]) < width {
		width = int(shape[len(shape)-1])
	}
	row := make([]float32, width)
	copy(row, data[:width])
	return row
}
