package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/dermaai/internal/domain/chatbot"
)

const knowledgeSchema = `
CREATE TABLE IF NOT EXISTS knowledge_entries (
    id             BIGSERIAL PRIMARY KEY,
    category       TEXT NOT NULL,
    category_rank  INT  NOT NULL,
    condition      TEXT NOT NULL UNIQUE,
    condition_rank INT  NOT NULL,
    definition     TEXT NOT NULL DEFAULT '',
    treatment      TEXT NOT NULL DEFAULT '',
    precautions    TEXT NOT NULL DEFAULT ''
)`

// PostgresBase reads entries from the knowledge_entries table.
type PostgresBase struct {
	pool *pgxpool.Pool
}

// NewPostgresBase constructs the repository.
func NewPostgresBase(pool *pgxpool.Pool) *PostgresBase {
	return &PostgresBase{pool: pool}
}

// Migrate creates the table when missing.
func (r *PostgresBase) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, knowledgeSchema); err != nil {
		return fmt.Errorf("create knowledge_entries: %w", err)
	}
	return nil
}

// Entries implements chatbot.KnowledgeBase.
func (r *PostgresBase) Entries(ctx context.Context) ([]chatbot.KnowledgeEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, condition, definition, treatment, precautions
		FROM knowledge_entries
		ORDER BY category_rank, condition_rank, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []chatbot.KnowledgeEntry
	for rows.Next() {
		var e chatbot.KnowledgeEntry
		if err := rows.Scan(&e.Category, &e.Condition, &e.Definition, &e.Treatment, &e.Precautions); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Seed inserts entries when the table is empty, preserving their order.
func (r *PostgresBase) Seed(ctx context.Context, entries []chatbot.KnowledgeEntry) error {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_entries`).Scan(&count); err != nil {
		return fmt.Errorf("count knowledge entries: %w", err)
	}
	if count > 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rankedRows(entries) {
		batch.Queue(`
			INSERT INTO knowledge_entries
				(category, category_rank, condition, condition_rank, definition, treatment, precautions)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, row.Category, row.categoryRank, row.Condition, row.conditionRank, row.Definition, row.Treatment, row.Precautions)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

type rankedRow struct {
	chatbot.KnowledgeEntry
	categoryRank  int
	conditionRank int
}

// rankedRows numbers categories by first appearance and conditions within
// their category, so ORDER BY on the ranks reproduces the input order.
func rankedRows(entries []chatbot.KnowledgeEntry) []rankedRow {
	rows := make([]rankedRow, 0, len(entries))
	categoryRank := make(map[string]int)
	conditionRank := make(map[string]int)
	for _, e := range entries {
		if _, ok := categoryRank[e.Category]; !ok {
			categoryRank[e.Category] = len(categoryRank)
		}
		rows = append(rows, rankedRow{
			KnowledgeEntry: e,
			categoryRank:   categoryRank[e.Category],
			conditionRank:  conditionRank[e.Category],
		})
		conditionRank[e.Category]++
	}
	return rows
}

var _ chatbot.KnowledgeBase = (*PostgresBase)(nil)
