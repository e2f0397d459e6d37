package sessionstore

import (
	"context"

	"github.com/yanqian/dermaai/internal/domain/chatbot"
	"github.com/yanqian/dermaai/internal/domain/routine"
)

// Store is the per-session state shared by the chatbot, the routine
// generator and logout.
type Store interface {
	chatbot.HistoryStore
	routine.PlanStore
	Clear(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*ValkeyStore)(nil)
)
