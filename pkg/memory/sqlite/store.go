// Package sqlite persists conversation-memory summaries to a single-table
// sqlite store, the conversation core's only persistence beyond config.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
)

const schema = `
CREATE TABLE IF NOT EXISTS mem_summaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	summary_text TEXT NOT NULL,
	mood_state TEXT NOT NULL,
	knobs_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mem_summaries_ts ON mem_summaries(ts);
`

// Store implements orchestrator.SummaryStore over a single-table sqlite
// database: mem_summaries(id, ts, summary_text, mood_state, knobs_json).
// No schema migration is part of the core.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and ensures
// the mem_summaries table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply mem_summaries schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends a summary, insertion-order id assigned by the table.
func (s *Store) Insert(ctx context.Context, summary orchestrator.MemorySummary) error {
	knobs, err := json.Marshal(summary.Knobs)
	if err != nil {
		return fmt.Errorf("marshal summary knobs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mem_summaries (ts, summary_text, mood_state, knobs_json) VALUES (?, ?, ?, ?)`,
		summary.TS.Unix(), summary.SummaryText, summary.MoodState, string(knobs),
	)
	if err != nil {
		return fmt.Errorf("insert memory summary: %w", err)
	}
	return nil
}

// Newest returns the most recent summary with ts >= cutoff, or nil if none
// qualifies.
func (s *Store) Newest(ctx context.Context, cutoff time.Time) (*orchestrator.MemorySummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ts, summary_text, mood_state, knobs_json FROM mem_summaries
		 WHERE ts >= ? ORDER BY ts DESC, id DESC LIMIT 1`,
		cutoff.Unix(),
	)

	var (
		id        int64
		ts        int64
		text      string
		mood      string
		knobsJSON string
	)
	if err := row.Scan(&id, &ts, &text, &mood, &knobsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query newest memory summary: %w", err)
	}

	var knobs map[string]string
	if knobsJSON != "" {
		if err := json.Unmarshal([]byte(knobsJSON), &knobs); err != nil {
			return nil, fmt.Errorf("unmarshal summary knobs: %w", err)
		}
	}

	return &orchestrator.MemorySummary{
		ID:          id,
		SummaryText: text,
		MoodState:   mood,
		Knobs:       knobs,
		TS:          time.Unix(ts, 0),
	}, nil
}
