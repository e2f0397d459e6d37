package classifier

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

func missingArtifacts() *stubLoader {
	return &stubLoader{loadFn: func(_ int32, cfg ModelConfig) (Engine, error) {
		return nil, apperrors.Wrap(apperrors.CodeArtifactMissing, "model not found: "+cfg.ModelPath, nil)
	}}
}

func TestService_DemoOutputWhenArtifactMissing(t *testing.T) {
	svc, err := NewService(testConfig(), missingArtifacts(), newTestLogger())
	require.NoError(t, err)
	img := pngBytes(t, solidNRGBA(4, 4, color.NRGBA{R: 90, A: 255}))

	skin, err := svc.Classify(context.Background(), KindSkin, img)
	require.NoError(t, err)
	require.True(t, skin.Demo)
	require.Equal(t, "demo", skin.Model)
	require.Equal(t, "Normal", skin.Label)
	require.Equal(t, 0.92, skin.Confidence)
	require.Equal(t, "Skin model not available; showing demo output.", skin.Notice)

	nail, err := svc.Classify(context.Background(), KindNail, img)
	require.NoError(t, err)
	require.True(t, nail.Demo)
	require.Equal(t, "Healthy", nail.Label)
	require.Equal(t, 0.88, nail.Confidence)
	require.Equal(t, []string{"healthy", "onychomycosis", "psoriasis"}, nail.Classes)
}

func TestService_DecodeFailureIsNotMaskedByDemo(t *testing.T) {
	svc, err := NewService(testConfig(), missingArtifacts(), newTestLogger())
	require.NoError(t, err)

	_, err = svc.Classify(context.Background(), KindSkin, []byte("garbage"))
	require.True(t, apperrors.IsCode(err, apperrors.CodeDecodeFailed))
}

func TestService_NailLabelsAreTitleCased(t *testing.T) {
	svc, err := NewService(testConfig(), fixedScores(0.1, 0.8, 0.1), newTestLogger())
	require.NoError(t, err)

	res, err := svc.Classify(context.Background(), KindNail, pngBytes(t, solidNRGBA(4, 4, color.NRGBA{A: 255})))
	require.NoError(t, err)
	require.False(t, res.Demo)
	require.Equal(t, "Onychomycosis", res.Label)
	require.Equal(t, 0.8, res.Confidence)
	require.Equal(t, "best_nail_model.onnx", res.Model)
}

func TestService_OutputWiderThanLabelsReportsUnknown(t *testing.T) {
	svc, err := NewService(testConfig(), fixedScores(0.1, 0.1, 0.1, 0.1, 0.6), newTestLogger())
	require.NoError(t, err)

	res, err := svc.Classify(context.Background(), KindSkin, pngBytes(t, solidNRGBA(4, 4, color.NRGBA{A: 255})))
	require.NoError(t, err)
	require.Equal(t, UnknownLabel, res.Label)
	require.Equal(t, 0.6, res.Confidence)
}

func TestService_UnknownKindAndStatus(t *testing.T) {
	svc, err := NewService(testConfig(), fixedScores(1), newTestLogger())
	require.NoError(t, err)

	_, err = svc.Classify(context.Background(), Kind("hair"), nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = ParseKind("HAIR")
	require.Error(t, err)
	k, err := ParseKind(" Nail ")
	require.NoError(t, err)
	require.Equal(t, KindNail, k)

	status := svc.Status()
	require.Len(t, status, 2)
	require.Equal(t, KindSkin, status[0].Kind)
	require.False(t, status[0].Loaded)
	require.NoError(t, svc.Close())
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Nail.Labels = nil
	_, err := NewService(cfg, fixedScores(1), newTestLogger())
	require.Error(t, err)
}

func TestService_WarmupLoadsEachModelOnce(t *testing.T) {
	loader := fixedScores(0.1, 0.2, 0.7)
	svc, err := NewService(testConfig(), loader, newTestLogger())
	require.NoError(t, err)

	svc.Warmup(context.Background())
	require.EqualValues(t, 2, loader.calls.Load())
	for _, st := range svc.Status() {
		require.True(t, st.Loaded, st.Kind)
	}

	_, err = svc.Classify(context.Background(), KindNail, pngBytes(t, solidNRGBA(4, 4, color.NRGBA{G: 10, A: 255})))
	require.NoError(t, err)
	require.EqualValues(t, 2, loader.calls.Load())
	require.NoError(t, svc.Close())
}

func TestService_WarmupToleratesMissingArtifacts(t *testing.T) {
	loader := missingArtifacts()
	svc, err := NewService(testConfig(), loader, newTestLogger())
	require.NoError(t, err)

	svc.Warmup(context.Background())
	for _, st := range svc.Status() {
		require.False(t, st.Loaded)
		require.NotEmpty(t, st.LastError)
	}
}
