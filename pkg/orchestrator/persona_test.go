package orchestrator

import "testing"

func presetRoster() []Preset {
	return []Preset{
		{Name: "chill", Style: "chill", Chaos: 0.1, Energy: 0.3},
		{Name: "unhinged", Style: "unhinged", Chaos: 0.9, Energy: 0.9, SystemPrompt: "go wild"},
	}
}

func TestNewPersonaStoreActivatesDefault(t *testing.T) {
	s := NewPersonaStore(presetRoster(), "chill")
	p := s.Snapshot()
	if p.ActivePreset != "chill" || p.Style != "chill" {
		t.Fatalf("expected chill preset active, got %+v", p)
	}
}

func TestNewPersonaStoreFallsBackOnMissingDefault(t *testing.T) {
	s := NewPersonaStore(presetRoster(), "nonexistent")
	p := s.Snapshot()
	if p.ActivePreset != "custom" {
		t.Fatalf("expected custom fallback, got %q", p.ActivePreset)
	}
}

func TestApplyPresetReturnsSystemPrompt(t *testing.T) {
	s := NewPersonaStore(presetRoster(), "chill")
	p, prompt, err := s.ApplyPreset("unhinged")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "go wild" {
		t.Fatalf("expected system prompt, got %q", prompt)
	}
	if p.ActivePreset != "unhinged" {
		t.Fatalf("expected active preset updated, got %q", p.ActivePreset)
	}
}

func TestApplyPresetUnknownName(t *testing.T) {
	s := NewPersonaStore(presetRoster(), "chill")
	if _, _, err := s.ApplyPreset("ghost"); err != ErrUnknownPreset {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestUpdatePersonaMarksCustom(t *testing.T) {
	s := NewPersonaStore(presetRoster(), "chill")
	chaos := 0.5
	p := s.UpdatePersona(PersonaUpdate{Chaos: &chaos})
	if p.ActivePreset != "custom" {
		t.Fatalf("expected custom after scalar mutation, got %q", p.ActivePreset)
	}
	if p.Chaos != 0.5 {
		t.Fatalf("expected chaos updated, got %v", p.Chaos)
	}
}

func TestUpdatePersonaNoopLeavesPresetAlone(t *testing.T) {
	s := NewPersonaStore(presetRoster(), "chill")
	p := s.UpdatePersona(PersonaUpdate{})
	if p.ActivePreset != "chill" {
		t.Fatalf("expected preset unchanged on empty update, got %q", p.ActivePreset)
	}
}
