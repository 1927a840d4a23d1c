package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndNewest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := orchestrator.MemorySummary{SummaryText: "older", MoodState: "neutral", TS: time.Now().Add(-2 * time.Hour)}
	newer := orchestrator.MemorySummary{SummaryText: "newer", MoodState: "excited", Knobs: map[string]string{"turn_count": "6"}, TS: time.Now()}

	if err := s.Insert(ctx, older); err != nil {
		t.Fatalf("insert older: %v", err)
	}
	if err := s.Insert(ctx, newer); err != nil {
		t.Fatalf("insert newer: %v", err)
	}

	got, err := s.Newest(ctx, time.Now().Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("newest: %v", err)
	}
	if got == nil {
		t.Fatal("expected a result")
	}
	if got.SummaryText != "newer" {
		t.Fatalf("expected newest summary, got %q", got.SummaryText)
	}
	if got.Knobs["turn_count"] != "6" {
		t.Fatalf("expected knobs round-tripped, got %+v", got.Knobs)
	}
}

func TestNewestRespectsCutoff(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := orchestrator.MemorySummary{SummaryText: "too old", TS: time.Now().Add(-48 * time.Hour)}
	if err := s.Insert(ctx, old); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.Newest(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("newest: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil beyond cutoff window, got %+v", got)
	}
}

func TestNewestEmptyTable(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Newest(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on empty table, got %+v", got)
	}
}
