package chatbot

import "context"

// HistoryStore keeps the bounded per-session conversation memory.
type HistoryStore interface {
	AppendTurn(ctx context.Context, sessionID string, turn ChatTurn, limit int) error
	Turns(ctx context.Context, sessionID string) ([]ChatTurn, error)
	ClearTurns(ctx context.Context, sessionID string) error
}

// KnowledgeBase returns entries in their declared iteration order.
type KnowledgeBase interface {
	Entries(ctx context.Context) ([]KnowledgeEntry, error)
}
