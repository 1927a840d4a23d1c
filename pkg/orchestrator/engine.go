package orchestrator

import (
	"context"
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var speechPattern = regexp.MustCompile(`(?is)<speech>(.*?)</speech>`)

func extractSpeech(content string) string {
	if m := speechPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(html.UnescapeString(m[1]))
	}
	return strings.TrimSpace(content)
}

// Callbacks is the narrow capability interface the Decision Engine uses to
// reach back into the owning facade, breaking the C8↔C9 cyclic reference
// the component design calls out: the engine never holds the facade, only
// these closures.
type Callbacks struct {
	MarkHealth      func(module string, health Health)
	MarkLatency     func(module string, latencyMS float64)
	MarkFailure     func(module string)
	RecordTurn      func(ctx context.Context, role Role, text string) (*MemorySummary, error)
	PersonaSnapshot func() Persona
	PersonaPrompt   func(presetName string) string
	MemorySnapshot  func() (*MemorySummary, []MemoryTurn)
	Publish         func(Event)
	Muted           func() bool
}

func (c Callbacks) markFailure(module string) {
	if c.MarkFailure != nil {
		c.MarkFailure(module)
	}
}

func (c Callbacks) markLatency(module string, latencyMS float64) {
	if c.MarkLatency != nil {
		c.MarkLatency(module, latencyMS)
	}
}

// DecisionEngine owns ASR-segment deduplication, policy request assembly,
// token-stream-to-TTS pipeline orchestration, and health attribution.
type DecisionEngine struct {
	segMu     sync.Mutex
	active    map[int]struct{}
	completed map[int]time.Time

	policy PolicyClient
	tts    TTSClient
	cb     Callbacks
	cfg    Config
	logger Logger
	now    func() time.Time
}

// NewDecisionEngine constructs an engine bound to a policy client, a TTS
// client, and the facade's capability callbacks.
func NewDecisionEngine(policy PolicyClient, tts TTSClient, cb Callbacks, cfg Config, logger Logger) *DecisionEngine {
	return &DecisionEngine{
		active:    make(map[int]struct{}),
		completed: make(map[int]time.Time),
		policy:    policy,
		tts:       tts,
		cb:        cb,
		cfg:       cfg,
		logger:    orNoOp(logger),
		now:       time.Now,
	}
}

// HandleASRPartial broadcasts an interim hypothesis. Partial segments never
// register against the dedup set or invoke the policy client.
func (e *DecisionEngine) HandleASRPartial(ctx context.Context, evt ASRPartialEvent) {
	e.cb.Publish(Event{Type: EventASRPartial, Payload: evt})
}

// HandleASRFinal runs the full segment-dedup → policy → TTS pipeline for a
// finalized ASR segment. A segment id already active or completed is
// rejected as a duplicate before any memory write or policy invocation, so
// a retried final never double-records the user turn or double-invokes
// the policy worker.
func (e *DecisionEngine) HandleASRFinal(ctx context.Context, evt ASRFinalEvent) error {
	e.cb.Publish(Event{Type: EventASRFinal, Payload: evt})

	if !e.registerSegment(evt.Segment) {
		e.logger.Debug("duplicate segment rejected", "segment", evt.Segment)
		return ErrDuplicateSegment
	}
	defer e.completeSegment(evt.Segment)

	if _, err := e.cb.RecordTurn(ctx, RoleUser, evt.Text); err != nil {
		e.logger.Warn("record user turn failed", "segment", evt.Segment, "error", err)
	}

	return e.runPipeline(ctx, evt.Text, true, !e.cb.Muted())
}

// ProcessManualPrompt injects text directly into the pipeline (the
// endpoint-equivalent path), with synthesis controlled by the caller
// rather than derived from mute state.
func (e *DecisionEngine) ProcessManualPrompt(ctx context.Context, text string, synthesize bool) error {
	if _, err := e.cb.RecordTurn(ctx, RoleUser, text); err != nil {
		e.logger.Warn("record manual prompt turn failed", "error", err)
	}
	return e.runPipeline(ctx, text, false, synthesize)
}

func (e *DecisionEngine) registerSegment(id int) bool {
	e.segMu.Lock()
	defer e.segMu.Unlock()

	if _, ok := e.active[id]; ok {
		return false
	}
	if _, ok := e.completed[id]; ok {
		return false
	}
	e.active[id] = struct{}{}
	return true
}

func (e *DecisionEngine) completeSegment(id int) {
	e.segMu.Lock()
	defer e.segMu.Unlock()

	delete(e.active, id)
	e.completed[id] = e.now()
	e.pruneCompletedLocked()
}

func (e *DecisionEngine) pruneCompletedLocked() {
	max := e.cfg.SegmentPruneMax
	if max <= 0 {
		max = 64
	}
	if len(e.completed) <= max {
		return
	}
	age := e.cfg.SegmentPruneAge
	if age <= 0 {
		age = 300 * time.Second
	}
	cutoff := e.now().Add(-age)
	for id, ts := range e.completed {
		if ts.Before(cutoff) {
			delete(e.completed, id)
		}
	}
}

func (e *DecisionEngine) buildPolicyRequest(persona Persona, text string, isFinal bool) PolicyRequest {
	req := PolicyRequest{
		RequestID:      uuid.NewString(),
		Text:           text,
		IsFinal:        isFinal,
		PersonaStyle:   persona.Style,
		ChaosLevel:     persona.Chaos,
		Energy:         persona.Energy,
		FamilyFriendly: persona.FamilyMode,
	}

	if e.cb.PersonaPrompt != nil {
		if prompt := e.cb.PersonaPrompt(persona.ActivePreset); prompt != "" {
			req.PersonaPrompt = prompt
		}
	}

	if e.cb.MemorySnapshot != nil {
		summary, turns := e.cb.MemorySnapshot()
		if summary != nil {
			req.MemorySummary = &summary.SummaryText
		}
		n := e.cfg.RecentMemoryTurns
		if n <= 0 {
			n = 6
		}
		if n > len(turns) {
			n = len(turns)
		}
		recent := turns[len(turns)-n:]
		req.RecentTurns = make([]PolicyContextTurn, len(recent))
		for i, t := range recent {
			req.RecentTurns[i] = PolicyContextTurn{Role: string(t.Role), Content: t.Text}
		}
	}

	return req
}

// runPipeline builds the policy request, streams the response through a
// StreamingReplySession, attributes module health from the response, and
// performs fallback synthesis when streaming produced zero chunks.
func (e *DecisionEngine) runPipeline(ctx context.Context, text string, isFinal bool, synthesize bool) error {
	persona := e.cb.PersonaSnapshot()
	req := e.buildPolicyRequest(persona, text, isFinal)

	session := NewStreamingReplySession(ctx, req.RequestID, persona.Style, synthesize, e.tts, e.cb.Publish, e.cb.MarkLatency, e.cfg, e.logger)

	handler := func(event string, payload map[string]interface{}) error {
		switch event {
		case "token":
			if tok, ok := payload["token"].(string); ok {
				session.HandleToken(tok)
			}
		case "retry":
			reason, _ := payload["reason"].(string)
			session.HandleRetry(reason)
		}
		return nil
	}

	final, err := e.policy.Invoke(ctx, req, handler)
	if err != nil || final == nil {
		e.cb.MarkHealth("policy_worker", HealthOffline)
		e.cb.markFailure("policy_worker")
		session.Close()
		return ErrPolicyUnavailable
	}

	switch final.Meta.Status {
	case "busy":
		e.cb.MarkHealth("policy_worker", HealthDegraded)
		session.Close()
		e.cb.Publish(Event{Type: EventPolicyFinal, Payload: final})
		return nil
	case "error":
		e.cb.MarkHealth("policy_worker", HealthOffline)
		e.cb.markFailure("policy_worker")
		session.Close()
		e.cb.Publish(Event{Type: EventPolicyFinal, Payload: final})
		return nil
	default:
		e.cb.MarkHealth("policy_worker", HealthOnline)
	}

	session.Finalize()
	session.Close()
	e.cb.Publish(Event{Type: EventPolicyFinal, Payload: final})

	speech := extractSpeech(final.Content)
	if speech == "" {
		return nil
	}

	if synthesize && session.RequiresFallback() {
		e.fallbackSynthesize(ctx, req.RequestID, speech)
		return nil
	}

	if !synthesize || session.ChunksEmitted() > 0 {
		if _, err := e.cb.RecordTurn(ctx, RoleAssistant, speech); err != nil {
			e.logger.Warn("record assistant turn failed", "error", err)
		}
	}

	return nil
}

func (e *DecisionEngine) fallbackSynthesize(ctx context.Context, requestID, speech string) {
	start := time.Now()
	result, err := e.tts.Synthesize(ctx, TTSRequest{Text: speech, RequestID: requestID})
	latency := round2(float64(time.Since(start).Microseconds()) / 1000.0)
	e.cb.markLatency("tts_worker", latency)

	if err != nil {
		e.cb.MarkHealth("tts_worker", HealthOffline)
		e.cb.markFailure("tts_worker")
		return
	}

	switch result.Status {
	case TTSOk:
		e.cb.MarkHealth("tts_worker", HealthOnline)
		e.cb.Publish(Event{Type: EventTTSGenerated, Payload: map[string]interface{}{
			"audio_path": result.AudioPath, "voice": result.Voice,
			"latency_ms": latency, "text": speech, "mode": "fallback",
		}})
		if _, err := e.cb.RecordTurn(ctx, RoleAssistant, speech); err != nil {
			e.logger.Warn("record fallback assistant turn failed", "error", err)
		}
	case TTSBusy:
		e.cb.MarkHealth("tts_worker", HealthDegraded)
	default:
		e.cb.MarkHealth("tts_worker", HealthOffline)
		e.cb.markFailure("tts_worker")
	}
}
