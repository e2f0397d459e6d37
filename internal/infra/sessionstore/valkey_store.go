package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/dermaai/internal/domain/chatbot"
	"github.com/yanqian/dermaai/internal/domain/routine"
)

// ValkeyStore persists per-session state in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "dermaai"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ValkeyStore) AppendTurn(ctx context.Context, sessionID string, turn chatbot.ChatTurn, limit int) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	key := s.turnsKey(sessionID)
	cmds := valkey.Commands{
		s.client.B().Rpush().Key(key).Element(string(payload)).Build(),
	}
	if limit > 0 {
		cmds = append(cmds, s.client.B().Ltrim().Key(key).Start(-int64(limit)).Stop(-1).Build())
	}
	if secs := s.ttlSeconds(); secs > 0 {
		cmds = append(cmds, s.client.B().Expire().Key(key).Seconds(secs).Build())
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ValkeyStore) Turns(ctx context.Context, sessionID string) ([]chatbot.ChatTurn, error) {
	items, err := s.client.Do(ctx, s.client.B().Lrange().Key(s.turnsKey(sessionID)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	turns := make([]chatbot.ChatTurn, 0, len(items))
	for _, item := range items {
		var turn chatbot.ChatTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *ValkeyStore) ClearTurns(ctx context.Context, sessionID string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.turnsKey(sessionID)).Build()).Error()
}

func (s *ValkeyStore) SavePlan(ctx context.Context, sessionID string, plan routine.Plan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.planKey(sessionID)).Value(string(payload))
	var cmd valkey.Completed
	if secs := s.ttlSeconds(); secs > 0 {
		cmd = builder.ExSeconds(secs).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) LoadPlan(ctx context.Context, sessionID string) (routine.Plan, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.planKey(sessionID)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return routine.Plan{}, false, nil
		}
		return routine.Plan{}, false, err
	}
	var plan routine.Plan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return routine.Plan{}, false, fmt.Errorf("decode plan: %w", err)
	}
	return plan, true, nil
}

// Clear drops everything held for the session.
func (s *ValkeyStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.turnsKey(sessionID), s.planKey(sessionID)).Build()).Error()
}

// Ping checks connectivity for /readyz.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

func (s *ValkeyStore) ttlSeconds() int64 {
	if s.ttl <= 0 {
		return 0
	}
	if s.ttl < time.Second {
		return 1
	}
	return int64(s.ttl / time.Second)
}

func (s *ValkeyStore) turnsKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:turns", s.prefix, sessionID)
}

func (s *ValkeyStore) planKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:plan", s.prefix, sessionID)
}

var (
	_ chatbot.HistoryStore = (*ValkeyStore)(nil)
	_ routine.PlanStore    = (*ValkeyStore)(nil)
)
