package orchestrator

import "context"

// PolicyRequest is the assembled request sent to the policy worker.
type PolicyRequest struct {
	RequestID      string              `json:"request_id"`
	Text           string              `json:"text"`
	IsFinal        bool                `json:"is_final"`
	PersonaStyle   string              `json:"persona_style"`
	ChaosLevel     float64             `json:"chaos_level"`
	Energy         float64             `json:"energy"`
	FamilyFriendly bool                `json:"family_friendly"`
	PersonaPrompt  string              `json:"persona_prompt,omitempty"`
	MemorySummary  *string             `json:"memory_summary,omitempty"`
	RecentTurns    []PolicyContextTurn `json:"recent_turns,omitempty"`
}

// PolicyContextTurn is the {role, content} shape sent as recent memory.
type PolicyContextTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PolicyMeta carries out-of-band status from a policy final response.
type PolicyMeta struct {
	Status string `json:"status,omitempty"`
	Voice  string `json:"voice,omitempty"`
}

// PolicyFinal is the terminal payload of a policy invocation.
type PolicyFinal struct {
	Content   string     `json:"content"`
	Meta      PolicyMeta `json:"meta"`
	RequestID string     `json:"request_id"`
}

// StreamHandler receives named SSE-style events during a policy invocation:
// "start" (once, before any token), "token" (one per incremental fragment,
// in order), and optionally "retry" (discard the accumulated buffer).
type StreamHandler func(event string, payload map[string]interface{}) error

// PolicyClient opens a streaming request to the policy worker and yields
// token/start/final/retry events via the supplied handler. It returns the
// final payload, or nil with ErrPolicyUnavailable on unrecoverable failure.
type PolicyClient interface {
	Invoke(ctx context.Context, req PolicyRequest, handler StreamHandler) (*PolicyFinal, error)
	Name() string
}
