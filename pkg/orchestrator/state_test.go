package orchestrator

import (
	"context"
	"testing"
)

func newTestState(policy PolicyClient, tts TTSClient) (*OrchestratorState, *Broker) {
	broker := NewBroker(16, nil, nil)
	registry := NewModuleRegistry([]string{"asr_worker", "policy_worker", "tts_worker"})
	persona := NewPersonaStore(presetRoster(), "chill")
	memory := NewConversationMemory(10, 1000, nil, NewHeuristicSummarizer(0), nil)
	cfg := testConfig()
	return NewOrchestratorState(broker, registry, persona, memory, policy, tts, cfg, nil), broker
}

func subscribeAll(t *testing.T, b *Broker) <-chan Event {
	t.Helper()
	_, ch := b.Subscribe()
	return ch
}

func TestToggleModuleTTSWorkerRoutesThroughMute(t *testing.T) {
	policy := &fakePolicy{respond: speechFinalResponder("hi")}
	tts := &fakeTTS{}
	s, _ := newTestState(policy, tts)

	if err := s.ToggleModule("tts_worker", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsMuted() {
		t.Fatal("expected disabling tts_worker to set global mute")
	}

	snap := s.HealthSnapshot()
	found := false
	for _, m := range snap {
		if m.Name == "tts_worker" {
			found = true
			if m.Enabled {
				t.Fatal("expected tts_worker disabled")
			}
		}
	}
	if !found {
		t.Fatal("expected tts_worker present in registry snapshot")
	}
}

func TestToggleModuleUnknownName(t *testing.T) {
	policy := &fakePolicy{respond: speechFinalResponder("hi")}
	tts := &fakeTTS{}
	s, _ := newTestState(policy, tts)

	if err := s.ToggleModule("ghost_worker", true); err != ErrUnknownModule {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
}

func TestApplyPresetPublishesAndRecordsSystemTurn(t *testing.T) {
	policy := &fakePolicy{respond: speechFinalResponder("hi")}
	tts := &fakeTTS{}
	s, broker := newTestState(policy, tts)
	ch := subscribeAll(t, broker)

	if err := s.ApplyPreset(context.Background(), "unhinged"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sawPersonaUpdate, sawControlPreset := false, false
	for i := 0; i < 4; i++ {
		select {
		case ev := <-ch:
			switch ev.Type {
			case EventPersonaUpdate:
				sawPersonaUpdate = true
			case EventControlPreset:
				if cmd, ok := ev.Payload.(PresetCommand); ok && cmd.Name == "unhinged" {
					sawControlPreset = true
				}
			}
		default:
		}
	}
	if !sawPersonaUpdate {
		t.Fatal("expected a persona_update event published")
	}
	if !sawControlPreset {
		t.Fatal("expected a control_preset event published")
	}

	if s.Snapshot().Persona.ActivePreset != "unhinged" {
		t.Fatalf("expected active preset unhinged, got %q", s.Snapshot().Persona.ActivePreset)
	}
}

func TestTriggerPanicMutesAndPublishes(t *testing.T) {
	policy := &fakePolicy{respond: speechFinalResponder("hi")}
	tts := &fakeTTS{}
	s, _ := newTestState(policy, tts)

	s.TriggerPanic("user requested stop")
	if !s.IsMuted() {
		t.Fatal("expected panic to mute TTS")
	}
}

func TestResumeUnmutesNothingButClearsPanicked(t *testing.T) {
	policy := &fakePolicy{respond: speechFinalResponder("hi")}
	tts := &fakeTTS{}
	s, _ := newTestState(policy, tts)

	s.TriggerPanic("stop")
	s.Resume("ok")
	// Resume only clears the panic flag; mute (set by panic) persists until
	// the caller explicitly unmutes, matching the twin-action contract.
	if !s.IsMuted() {
		t.Fatal("expected mute to persist across resume")
	}
}

func TestRecordTurnPublishesMemorySummaryWhenProduced(t *testing.T) {
	policy := &fakePolicy{respond: speechFinalResponder("hi")}
	tts := &fakeTTS{}
	broker := NewBroker(16, nil, nil)
	registry := NewModuleRegistry([]string{"tts_worker"})
	persona := NewPersonaStore(presetRoster(), "chill")
	memory := NewConversationMemory(10, 1, nil, NewHeuristicSummarizer(0), nil)
	s := NewOrchestratorState(broker, registry, persona, memory, policy, tts, testConfig(), nil)
	_, _ = broker.Subscribe()

	if err := s.RecordTurn(context.Background(), RoleUser, "hello there"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIngestChatTagsTurnWithPlatformAndAuthor(t *testing.T) {
	policy := &fakePolicy{respond: speechFinalResponder("hi")}
	tts := &fakeTTS{}
	s, _ := newTestState(policy, tts)

	if err := s.IngestChat(context.Background(), ChatIngestCommand{Platform: "twitch", Author: "viewer1", Text: "hi chat"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
