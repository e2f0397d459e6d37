package classifier

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	runFn  func(input []float32, shape []int64) ([]float32, error)
	closed atomic.Bool
}

func (e *stubEngine) Run(_ context.Context, input []float32, shape []int64) ([]float32, error) {
	return e.runFn(input, shape)
}

func (e *stubEngine) Close() error {
	e.closed.Store(true)
	return nil
}

type stubLoader struct {
	calls  atomic.Int32
	delay  time.Duration
	loadFn func(call int32, cfg ModelConfig) (Engine, error)
}

func (l *stubLoader) Load(cfg ModelConfig) (Engine, error) {
	n := l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	return l.loadFn(n, cfg)
}

func fixedScores(scores ...float32) *stubLoader {
	return &stubLoader{loadFn: func(int32, ModelConfig) (Engine, error) {
		return &stubEngine{runFn: func([]float32, []int64) ([]float32, error) {
			return scores, nil
		}}, nil
	}}
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	skin := DefaultSkinConfig("models")
	skin.InputHeight, skin.InputWidth = 8, 8
	nail := DefaultNailConfig("models")
	nail.InputHeight, nail.InputWidth = 8, 8
	return Config{Skin: skin, Nail: nail}
}
