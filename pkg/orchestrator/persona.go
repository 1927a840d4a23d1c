package orchestrator

import (
	"sync"
	"time"
)

// PersonaStore holds the active Persona and a named Preset roster. Every
// mutation acquires its lock, computes the result, and releases the lock
// before any memory-append or broker-publish call performed by the caller.
type PersonaStore struct {
	mu      sync.Mutex
	active  Persona
	presets map[string]Preset
	now     func() time.Time
}

// NewPersonaStore seeds the store with a preset roster and activates the
// named default preset, falling back to a bare persona if it is missing.
func NewPersonaStore(presets []Preset, defaultPreset string) *PersonaStore {
	s := &PersonaStore{
		presets: make(map[string]Preset, len(presets)),
		now:     time.Now,
	}
	for _, p := range presets {
		s.presets[p.Name] = p
	}
	if p, ok := s.presets[defaultPreset]; ok {
		s.active = Persona{
			Style:        p.Style,
			Chaos:        p.Chaos,
			Energy:       p.Energy,
			FamilyMode:   p.FamilyMode,
			ActivePreset: p.Name,
			LastUpdated:  s.now(),
		}
	} else {
		s.active = Persona{ActivePreset: "custom", LastUpdated: s.now()}
	}
	return s
}

// Snapshot returns a copy of the active persona.
func (s *PersonaStore) Snapshot() Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Preset looks up a preset by name, for request-assembly's optional prompt field.
func (s *PersonaStore) Preset(name string) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presets[name]
	return p, ok
}

// ApplyPreset activates a named preset atomically, returning its system
// prompt (if any) and the resulting persona snapshot for the caller to
// publish and record, per the component contract: preset application
// always emits a persona_update event and appends a memory system turn.
func (s *PersonaStore) ApplyPreset(name string) (Persona, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.presets[name]
	if !ok {
		return Persona{}, "", ErrUnknownPreset
	}

	s.active = Persona{
		Style:        p.Style,
		Chaos:        p.Chaos,
		Energy:       p.Energy,
		FamilyMode:   p.FamilyMode,
		ActivePreset: p.Name,
		LastUpdated:  s.now(),
	}
	return s.active, p.SystemPrompt, nil
}

// UpdatePersona applies a partial mutation. Any scalar field supplied
// outside a preset apply sets the active preset name to "custom".
func (s *PersonaStore) UpdatePersona(update PersonaUpdate) Persona {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if update.Style != nil {
		s.active.Style = *update.Style
		changed = true
	}
	if update.Chaos != nil {
		s.active.Chaos = *update.Chaos
		changed = true
	}
	if update.Energy != nil {
		s.active.Energy = *update.Energy
		changed = true
	}
	if update.FamilyMode != nil {
		s.active.FamilyMode = *update.FamilyMode
		changed = true
	}
	if changed {
		s.active.ActivePreset = "custom"
		s.active.LastUpdated = s.now()
	}
	return s.active
}
