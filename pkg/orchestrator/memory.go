package orchestrator

import (
	"context"
	"sync"
	"time"
)

// SummaryStore persists MemorySummary records and answers restore queries.
// Implemented by pkg/memory/sqlite against the mem_summaries table.
type SummaryStore interface {
	Insert(ctx context.Context, s MemorySummary) error
	Newest(ctx context.Context, cutoff time.Time) (*MemorySummary, error)
}

// Summarizer reduces the current ring buffer contents to a MemorySummary.
type Summarizer interface {
	Summarize(turns []MemoryTurn) MemorySummary
}

// ConversationMemory is a fixed-capacity ring of turns with periodic
// summarization and optional restore-on-start.
type ConversationMemory struct {
	mu       sync.Mutex
	capacity int
	interval int
	turns    []MemoryTurn
	count    int
	store    SummaryStore
	summer   Summarizer
	logger   Logger
	now      func() time.Time

	latestSummary *MemorySummary
}

// NewConversationMemory constructs a memory with the given ring capacity
// and summarization cadence (every interval-th AddTurn call).
func NewConversationMemory(capacity, interval int, store SummaryStore, summer Summarizer, logger Logger) *ConversationMemory {
	if capacity <= 0 {
		capacity = 40
	}
	if interval <= 0 {
		interval = 6
	}
	return &ConversationMemory{
		capacity: capacity,
		interval: interval,
		store:    store,
		summer:   summer,
		logger:   orNoOp(logger),
		now:      time.Now,
	}
}

// Prepare initializes persistence and, when restore is requested, loads the
// newest summary whose timestamp is within window of now.
func (m *ConversationMemory) Prepare(ctx context.Context, restore bool, window time.Duration) (*MemorySummary, error) {
	if !restore || m.store == nil {
		return nil, nil
	}
	cutoff := m.now().Add(-window)
	summary, err := m.store.Newest(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.latestSummary = summary
	m.mu.Unlock()
	return summary, nil
}

// AddTurn appends a turn and, every interval-th call, summarizes and
// persists. Returns the produced summary, or nil when none was due.
func (m *ConversationMemory) AddTurn(ctx context.Context, role Role, text string) (*MemorySummary, error) {
	m.mu.Lock()
	m.turns = append(m.turns, MemoryTurn{Role: role, Text: text, TS: m.now()})
	if len(m.turns) > m.capacity {
		m.turns = m.turns[len(m.turns)-m.capacity:]
	}
	m.count++
	due := m.summer != nil && m.count%m.interval == 0
	var turnsCopy []MemoryTurn
	if due {
		turnsCopy = append(turnsCopy, m.turns...)
	}
	m.mu.Unlock()

	if !due {
		return nil, nil
	}

	summary := m.summer.Summarize(turnsCopy)
	summary.TS = m.now()

	if m.store != nil {
		if err := m.store.Insert(ctx, summary); err != nil {
			m.logger.Warn("memory summary persist failed", "error", err)
			return nil, err
		}
	}

	m.mu.Lock()
	m.latestSummary = &summary
	m.mu.Unlock()

	return &summary, nil
}

// Recent returns the last n turns, oldest first.
func (m *ConversationMemory) Recent(n int) []MemoryTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > len(m.turns) {
		n = len(m.turns)
	}
	out := make([]MemoryTurn, n)
	copy(out, m.turns[len(m.turns)-n:])
	return out
}

// LatestSummary returns the most recently produced or restored summary, if any.
func (m *ConversationMemory) LatestSummary() *MemorySummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestSummary
}
