package orchestrator

import (
	"fmt"
	"strings"
)

// HeuristicSummarizer produces a lightweight rollup of a turn window without
// calling out to a model: a truncated concatenation of user/assistant text
// plus a mood guess derived from simple lexical cues. It exists so the
// conversation core has a working default summarizer with no external
// dependency; a policy-backed summarizer can replace it via the Summarizer
// interface.
type HeuristicSummarizer struct {
	MaxChars int
}

// NewHeuristicSummarizer constructs a summarizer truncating at maxChars
// (0 selects a sensible default).
func NewHeuristicSummarizer(maxChars int) *HeuristicSummarizer {
	if maxChars <= 0 {
		maxChars = 480
	}
	return &HeuristicSummarizer{MaxChars: maxChars}
}

var moodLexicon = []struct {
	mood   string
	markers []string
}{
	{"excited", []string{"!", "amazing", "awesome", "love"}},
	{"annoyed", []string{"ugh", "annoying", "stupid", "hate"}},
	{"curious", []string{"?", "wonder", "how come", "why"}},
}

func (h *HeuristicSummarizer) Summarize(turns []MemoryTurn) MemorySummary {
	var b strings.Builder
	moodCounts := make(map[string]int)

	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
		lower := strings.ToLower(t.Text)
		for _, entry := range moodLexicon {
			for _, marker := range entry.markers {
				if strings.Contains(lower, marker) {
					moodCounts[entry.mood]++
				}
			}
		}
	}

	text := b.String()
	if len(text) > h.MaxChars {
		text = text[:h.MaxChars]
	}

	mood := "neutral"
	best := 0
	for m, c := range moodCounts {
		if c > best {
			best = c
			mood = m
		}
	}

	return MemorySummary{
		SummaryText: strings.TrimSpace(text),
		MoodState:   mood,
		Knobs:       map[string]string{"turn_count": fmt.Sprintf("%d", len(turns))},
	}
}
