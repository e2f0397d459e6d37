package routine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

type stubGenerator struct {
	calls      int
	lastModel  string
	lastPrompt string
	generateFn func(ctx context.Context) (string, error)
}

func (s *stubGenerator) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	s.calls++
	s.lastModel = model
	s.lastPrompt = prompt
	return s.generateFn(ctx)
}

type memoryPlans struct {
	mu      sync.Mutex
	plans   map[string]Plan
	loadErr error
}

func newMemoryPlans() *memoryPlans {
	return &memoryPlans{plans: make(map[string]Plan)}
}

func (m *memoryPlans) SavePlan(_ context.Context, sessionID string, plan Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[sessionID] = plan
	return nil
}

func (m *memoryPlans) LoadPlan(_ context.Context, sessionID string) (Plan, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Plan{}, false, m.loadErr
	}
	plan, ok := m.plans[sessionID]
	return plan, ok, nil
}

func newTestService(gen Generator, store PlanStore) Service {
	return NewService(Config{Model: "gemini-2.5-flash", Timeout: time.Second}, gen, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGenerate_ParsesAndCaches(t *testing.T) {
	gen := &stubGenerator{generateFn: func(context.Context) (string, error) {
		return `{"skin_analysis":"Combination skin","morning_routine":["Cleanser"],"evening_routine":["Retinol"],"diet_tips":["Water"],"lifestyle":["Sleep 8h"]}`, nil
	}}
	store := newMemoryPlans()
	svc := newTestService(gen, store)

	resp, err := svc.Generate(context.Background(), "s1", Request{SkinType: "combination", Age: "30", Allergies: "nuts"})
	require.NoError(t, err)
	require.Equal(t, SourceLLM, resp.Source)
	require.Empty(t, resp.Notice)
	require.Equal(t, "Combination skin", resp.Routine.SkinAnalysis)
	require.Equal(t, "gemini-2.5-flash", gen.lastModel)
	require.Contains(t, gen.lastPrompt, "- Allergies: nuts")

	cached, ok, err := svc.Current(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, resp.Routine, cached)
}

func TestGenerate_FallbackNeverErrors(t *testing.T) {
	cases := map[string]Generator{
		"no generator": nil,
		"upstream error": &stubGenerator{generateFn: func(context.Context) (string, error) {
			return "", errors.New("503 unavailable")
		}},
		"prose only": &stubGenerator{generateFn: func(context.Context) (string, error) {
			return "I recommend washing your face.", nil
		}},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemoryPlans()
			svc := newTestService(gen, store)

			resp, err := svc.Generate(context.Background(), "s1", Request{})
			require.NoError(t, err)
			require.Equal(t, SourceFallback, resp.Source)
			require.Equal(t, fallbackNotice, resp.Notice)
			require.Equal(t, FallbackPlan(), resp.Routine)
			require.Equal(t, FallbackPlan(), store.plans["s1"])
		})
	}
}

func TestGenerate_TimeoutBoundsCall(t *testing.T) {
	gen := &stubGenerator{generateFn: func(ctx context.Context) (string, error) {
		_, ok := ctx.Deadline()
		require.True(t, ok)
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc := NewService(Config{Timeout: 10 * time.Millisecond}, gen, newMemoryPlans(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	resp, err := svc.Generate(context.Background(), "s1", Request{})
	require.NoError(t, err)
	require.Equal(t, SourceFallback, resp.Source)
}

func TestGenerate_RequiresSession(t *testing.T) {
	svc := newTestService(nil, newMemoryPlans())
	_, err := svc.Generate(context.Background(), " ", Request{})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestDownload(t *testing.T) {
	store := newMemoryPlans()
	svc := newTestService(nil, store)

	doc, err := svc.Download(context.Background(), "missing")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

	_, err = svc.Generate(context.Background(), "s1", Request{})
	require.NoError(t, err)
	doc, err = svc.Download(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

	store.loadErr = errors.New("valkey down")
	_, err = svc.Download(context.Background(), "s1")
	require.True(t, apperrors.IsCode(err, apperrors.CodeStorageError))
}
