package classifier

import (
	"context"
	"errors"
	"image/color"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

func TestClassifier_ConcurrentFirstRequestsLoadOnce(t *testing.T) {
	loader := fixedScores(0.1, 0.2, 0.6, 0.1)
	loader.delay = 20 * time.Millisecond
	clf := NewClassifier(testConfig().Skin, loader, newTestLogger())
	img := pngBytes(t, solidNRGBA(4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pred, err := clf.Predict(context.Background(), img)
			assert.NoError(t, err)
			assert.Equal(t, "Eczema", pred.Label)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), loader.calls.Load())
	require.True(t, clf.Status().Loaded)
}

func TestClassifier_FailedLoadIsRetried(t *testing.T) {
	loader := &stubLoader{loadFn: func(call int32, _ ModelConfig) (Engine, error) {
		if call == 1 {
			return nil, errors.New("corrupt graph")
		}
		return &stubEngine{runFn: func([]float32, []int64) ([]float32, error) {
			return []float32{0.9, 0.05, 0.05}, nil
		}}, nil
	}}
	clf := NewClassifier(testConfig().Nail, loader, newTestLogger())

	err := clf.Load()
	require.True(t, apperrors.IsCode(err, apperrors.CodeArtifactLoadFailed))
	st := clf.Status()
	require.False(t, st.Loaded)
	require.Contains(t, st.LastError, "corrupt graph")

	require.NoError(t, clf.Load())
	require.Equal(t, int32(2), loader.calls.Load())
	require.Empty(t, clf.Status().LastError)
}

func TestClassifier_PassesPreprocessedTensor(t *testing.T) {
	var gotShape []int64
	var gotLen int
	loader := &stubLoader{loadFn: func(int32, ModelConfig) (Engine, error) {
		return &stubEngine{runFn: func(input []float32, shape []int64) ([]float32, error) {
			gotShape, gotLen = shape, len(input)
			return []float32{3, 1, 0}, nil
		}}, nil
	}}
	clf := NewClassifier(testConfig().Nail, loader, newTestLogger())

	pred, err := clf.Predict(context.Background(), pngBytes(t, solidNRGBA(20, 10, color.NRGBA{A: 255})))
	require.NoError(t, err)
	require.Equal(t, []int64{1, 8, 8, 3}, gotShape)
	require.Equal(t, 8*8*3, gotLen)
	require.Equal(t, "healthy", pred.Label)
	require.InDelta(t, 0.844, pred.Probability, 1e-3)
}

func TestClassifier_InferenceErrorAndClose(t *testing.T) {
	engine := &stubEngine{runFn: func([]float32, []int64) ([]float32, error) {
		return nil, errors.New("shape mismatch")
	}}
	loader := &stubLoader{loadFn: func(int32, ModelConfig) (Engine, error) { return engine, nil }}
	clf := NewClassifier(testConfig().Skin, loader, newTestLogger())

	_, err := clf.Predict(context.Background(), pngBytes(t, solidNRGBA(2, 2, color.NRGBA{A: 255})))
	require.True(t, apperrors.IsCode(err, apperrors.CodeInferenceFailed))

	require.NoError(t, clf.Close())
	require.True(t, engine.closed.Load())
	require.False(t, clf.Status().Loaded)
}

func TestClassifier_NonFiniteScoresFailInference(t *testing.T) {
	clf := NewClassifier(testConfig().Skin, fixedScores(float32(math.Inf(1)), 1, 0, 0), newTestLogger())

	_, err := clf.Predict(context.Background(), pngBytes(t, solidNRGBA(2, 2, color.NRGBA{A: 255})))
	require.True(t, apperrors.IsCode(err, apperrors.CodeInferenceFailed))
}
