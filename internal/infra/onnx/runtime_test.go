package onnx

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/yanqian/dermaai/internal/domain/classifier"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

func TestRuntime_MissingArtifact(t *testing.T) {
	rt := NewRuntime("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	cfg := classifier.DefaultSkinConfig(filepath.Join(t.TempDir(), "models"))

	_, err := rt.Load(cfg)
	require.True(t, apperrors.IsCode(err, apperrors.CodeArtifactMissing))
	require.NoError(t, rt.Close())
}

func TestConcreteShapePinsDynamicDims(t *testing.T) {
	shape := concreteShape(ort.NewShape(-1, 4))
	require.Equal(t, ort.NewShape(1, 4), shape)
}

func TestFirstRow(t *testing.T) {
	row := firstRow([]float32{1, 2, 3, 4, 5, 6}, ort.NewShape(2, 3))
	require.Equal(t, []float32{1, 2, 3}, row)

	row = firstRow([]float32{1, 2}, ort.NewShape(1, 2))
	require.Equal(t, []float32{1, 2}, row)
}

func TestPickTensor(t *testing.T) {
	infos := []ort.InputOutputInfo{{Name: "input_1"}, {Name: "logits"}}
	got, err := pickTensor(infos, "")
	require.NoError(t, err)
	require.Equal(t, "input_1", got.Name)

	got, err = pickTensor(infos, "logits")
	require.NoError(t, err)
	require.Equal(t, "logits", got.Name)

	_, err = pickTensor(infos, "missing")
	require.Error(t, err)
	_, err = pickTensor(nil, "")
	require.Error(t, err)
}
