package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yanqian/dermaai/internal/domain/chatbot"
	"github.com/yanqian/dermaai/internal/domain/routine"
)

type sessionState struct {
	turns   []chatbot.ChatTurn
	plan    routine.Plan
	hasPlan bool
}

// MemoryStore keeps per-session state in a bounded LRU. Sessions idle for
// longer than the TTL are evicted.
type MemoryStore struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *sessionState]
}

// NewMemoryStore constructs a store holding at most maxSessions sessions.
func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = 10000
	}
	return &MemoryStore{
		sessions: expirable.NewLRU[string, *sessionState](maxSessions, nil, ttl),
	}
}

// AppendTurn implements chatbot.HistoryStore. Only the newest limit turns are kept.
func (s *MemoryStore) AppendTurn(_ context.Context, sessionID string, turn chatbot.ChatTurn, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.load(sessionID)
	state.turns = append(state.turns, turn)
	if limit > 0 && len(state.turns) > limit {
		state.turns = append([]chatbot.ChatTurn(nil), state.turns[len(state.turns)-limit:]...)
	}
	s.sessions.Add(sessionID, state)
	return nil
}

// Turns implements chatbot.HistoryStore.
func (s *MemoryStore) Turns(_ context.Context, sessionID string) ([]chatbot.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil
	}
	return append([]chatbot.ChatTurn(nil), state.turns...), nil
}

// ClearTurns implements chatbot.HistoryStore.
func (s *MemoryStore) ClearTurns(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.sessions.Get(sessionID); ok {
		state.turns = nil
	}
	return nil
}

// SavePlan implements routine.PlanStore.
func (s *MemoryStore) SavePlan(_ context.Context, sessionID string, plan routine.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.load(sessionID)
	state.plan = plan
	state.hasPlan = true
	s.sessions.Add(sessionID, state)
	return nil
}

// LoadPlan implements routine.PlanStore.
func (s *MemoryStore) LoadPlan(_ context.Context, sessionID string) (routine.Plan, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions.Get(sessionID)
	if !ok || !state.hasPlan {
		return routine.Plan{}, false, nil
	}
	return state.plan, true, nil
}

// Clear drops everything held for the session.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Remove(sessionID)
	return nil
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) load(sessionID string) *sessionState {
	if state, ok := s.sessions.Get(sessionID); ok {
		return state
	}
	return &sessionState{}
}

var (
	_ chatbot.HistoryStore = (*MemoryStore)(nil)
	_ routine.PlanStore    = (*MemoryStore)(nil)
)
