package orchestrator

import (
	"context"
	"fmt"
	"sync"
)

// StateSnapshot is the combined view exposed by Snapshot and broadcast
// periodically as a "status" event.
type StateSnapshot struct {
	Modules    []ModuleState        `json:"modules"`
	Persona    Persona              `json:"persona"`
	Scene      string               `json:"scene"`
	Expression VTSExpressionCommand `json:"expression"`
	Muted      bool                 `json:"muted"`
}

// OrchestratorState owns the broker, module registry, persona store,
// conversation memory, and decision engine (C1–C8), exposing the
// operations a thin external surface (outside this module's scope)
// consumes. Every state-mutating call acquires the facade's lock,
// computes the event payload, releases the lock, then publishes —
// ensuring publish never happens while holding a lock collaborators
// might also need.
type OrchestratorState struct {
	mu sync.Mutex

	broker   *Broker
	registry *ModuleRegistry
	persona  *PersonaStore
	memory   *ConversationMemory
	engine   *DecisionEngine

	cfg    Config
	logger Logger

	muted      bool
	panicked   bool
	scene      string
	expression VTSExpressionCommand

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestratorState wires C1–C8 together. The engine is constructed
// with a narrow Callbacks capability closing over the facade's own
// methods, never holding a reference back to the facade itself.
func NewOrchestratorState(broker *Broker, registry *ModuleRegistry, persona *PersonaStore, memory *ConversationMemory, policy PolicyClient, tts TTSClient, cfg Config, logger Logger) *OrchestratorState {
	s := &OrchestratorState{
		broker:   broker,
		registry: registry,
		persona:  persona,
		memory:   memory,
		cfg:      cfg,
		logger:   orNoOp(logger),
	}

	cb := Callbacks{
		MarkHealth:      s.registry.MarkHealth,
		MarkLatency:     s.registry.UpdateLatency,
		MarkFailure:     s.registry.IncrementFailure,
		RecordTurn:      s.recordTurnAndPublish,
		PersonaSnapshot: s.persona.Snapshot,
		PersonaPrompt: func(name string) string {
			if p, ok := s.persona.Preset(name); ok {
				return p.SystemPrompt
			}
			return ""
		},
		MemorySnapshot: func() (*MemorySummary, []MemoryTurn) {
			return s.memory.LatestSummary(), s.memory.Recent(0)
		},
		Publish: s.broker.Publish,
		Muted:   s.IsMuted,
	}
	s.engine = NewDecisionEngine(policy, tts, cb, cfg, s.logger)
	return s
}

// Snapshot returns a consistent combined view of modules, persona, scene,
// expression, and mute state.
func (s *OrchestratorState) Snapshot() StateSnapshot {
	s.mu.Lock()
	snap := StateSnapshot{
		Scene:      s.scene,
		Expression: s.expression,
		Muted:      s.muted,
	}
	s.mu.Unlock()

	snap.Modules = s.registry.Snapshot()
	snap.Persona = s.persona.Snapshot()
	return snap
}

// HealthSnapshot returns the module registry's current state.
func (s *OrchestratorState) HealthSnapshot() []ModuleState {
	return s.registry.Snapshot()
}

// ToggleModule enables or disables a named module. Toggling "tts_worker"
// is serialized through the same path as SetMute so the twin actions never
// reenter each other's lock.
func (s *OrchestratorState) ToggleModule(name string, enabled bool) error {
	if name == "tts_worker" {
		return s.setMuteInternal(!enabled)
	}
	if err := s.registry.SetEnabled(name, enabled); err != nil {
		return err
	}
	s.broker.Publish(Event{Type: EventModuleToggle, Payload: ModuleToggleCommand{Name: name, Enabled: enabled}})
	return nil
}

// SetMute toggles global TTS mute; implies ToggleModule("tts_worker", !muted).
func (s *OrchestratorState) SetMute(muted bool) error {
	return s.setMuteInternal(muted)
}

func (s *OrchestratorState) setMuteInternal(muted bool) error {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()

	if err := s.registry.SetEnabled("tts_worker", !muted); err != nil {
		s.logger.Warn("tts_worker module not registered", "error", err)
	}

	s.broker.Publish(Event{Type: EventControlMute, Payload: MuteRequest{Muted: muted}})
	s.broker.Publish(Event{Type: EventModuleToggle, Payload: ModuleToggleCommand{Name: "tts_worker", Enabled: !muted}})
	return nil
}

// IsMuted reports the current global TTS mute state.
func (s *OrchestratorState) IsMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// UpdatePersona applies a partial mutation and publishes persona_update.
func (s *OrchestratorState) UpdatePersona(update PersonaUpdate) Persona {
	p := s.persona.UpdatePersona(update)
	s.broker.Publish(Event{Type: EventPersonaUpdate, Payload: p})
	return p
}

// ApplyPreset activates a named preset, publishes persona_update, and
// appends a system turn recording the switch.
func (s *OrchestratorState) ApplyPreset(ctx context.Context, name string) error {
	p, _, err := s.persona.ApplyPreset(name)
	if err != nil {
		return err
	}
	s.broker.Publish(Event{Type: EventPersonaUpdate, Payload: p})
	s.broker.Publish(Event{Type: EventControlPreset, Payload: PresetCommand{Name: name}})
	if _, err := s.recordTurnAndPublish(ctx, RoleSystem, fmt.Sprintf("Persona updated to %s preset.", name)); err != nil {
		s.logger.Warn("record preset-switch turn failed", "error", err)
	}
	return nil
}

// TriggerPanic mutes TTS immediately and publishes control.panic.
func (s *OrchestratorState) TriggerPanic(reason string) {
	s.mu.Lock()
	s.panicked = true
	s.mu.Unlock()

	_ = s.setMuteInternal(true)
	s.broker.Publish(Event{Type: EventControlPanic, Payload: PanicRequest{Reason: reason}})
}

// Resume clears a previously triggered panic state.
func (s *OrchestratorState) Resume(reason string) {
	s.mu.Lock()
	s.panicked = false
	s.mu.Unlock()

	s.broker.Publish(Event{Type: EventControlPanic, Payload: ResumeRequest{Reason: reason}})
}

// RecordTTS publishes a tts_request lifecycle event for an issued request.
func (s *OrchestratorState) RecordTTS(req TTSRequest) {
	s.broker.Publish(Event{Type: EventTTSRequest, Payload: req})
}

// UpdateScene switches the broadcast scene.
func (s *OrchestratorState) UpdateScene(name string) {
	s.mu.Lock()
	s.scene = name
	s.mu.Unlock()
	s.broker.Publish(Event{Type: EventOBSScene, Payload: OBSSceneCommand{Scene: name}})
}

// UpdateExpression sets the avatar expression.
func (s *OrchestratorState) UpdateExpression(cmd VTSExpressionCommand) {
	s.mu.Lock()
	s.expression = cmd
	s.mu.Unlock()
	s.broker.Publish(Event{Type: EventVTSExpression, Payload: cmd})
}

// RecordTurn appends a turn to conversation memory, publishing
// memory_summary when one was produced as a result.
func (s *OrchestratorState) RecordTurn(ctx context.Context, role Role, text string) error {
	_, err := s.recordTurnAndPublish(ctx, role, text)
	return err
}

func (s *OrchestratorState) recordTurnAndPublish(ctx context.Context, role Role, text string) (*MemorySummary, error) {
	summary, err := s.memory.AddTurn(ctx, role, text)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		s.broker.Publish(Event{Type: EventMemorySummary, Payload: summary})
	}
	return summary, nil
}

// HandleASRPartial forwards to the decision engine.
func (s *OrchestratorState) HandleASRPartial(ctx context.Context, evt ASRPartialEvent) {
	s.engine.HandleASRPartial(ctx, evt)
}

// HandleASRFinal forwards to the decision engine.
func (s *OrchestratorState) HandleASRFinal(ctx context.Context, evt ASRFinalEvent) error {
	return s.engine.HandleASRFinal(ctx, evt)
}

// ProcessManualPrompt forwards to the decision engine.
func (s *OrchestratorState) ProcessManualPrompt(ctx context.Context, text string, synthesize bool) error {
	return s.engine.ProcessManualPrompt(ctx, text, synthesize)
}

// IngestChat records a chat-platform message as a user turn, tagged with
// its platform and author.
func (s *OrchestratorState) IngestChat(ctx context.Context, cmd ChatIngestCommand) error {
	return s.RecordTurn(ctx, RoleUser, fmt.Sprintf("[%s] %s: %s", cmd.Platform, cmd.Author, cmd.Text))
}

// StartBackgroundTasks launches the module-registry jitter heartbeat,
// broadcasting a full status snapshot every tick.
func (s *OrchestratorState) StartBackgroundTasks(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.registry.StartJitter(bgCtx, s.cfg.RegistryJitter, func(modules []ModuleState) {
			s.broker.Publish(Event{Type: EventStatus, Payload: s.Snapshot()})
		})
	}()
}

// Shutdown cancels background tasks and waits for them to exit.
func (s *OrchestratorState) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
