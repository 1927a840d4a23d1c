package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// ModuleRegistry tracks per-module enable/health/latency and emits periodic
// jitter heartbeats for dashboards. Toggling "tts_worker" off implies
// global TTS mute, enforced by the orchestrator state facade, not here.
type ModuleRegistry struct {
	mu      sync.RWMutex
	modules map[string]*ModuleState
	now     func() time.Time
}

// NewModuleRegistry seeds the registry with one entry per known worker name,
// all starting enabled and online.
func NewModuleRegistry(names []string) *ModuleRegistry {
	r := &ModuleRegistry{
		modules: make(map[string]*ModuleState, len(names)),
		now:     time.Now,
	}
	for _, n := range names {
		r.modules[n] = &ModuleState{
			Name:        n,
			Enabled:     true,
			Health:      HealthOnline,
			LatencyMS:   1.0,
			LastUpdated: r.now(),
		}
	}
	return r
}

// SetEnabled toggles a module's enabled flag. Disabling a module forces its
// health to offline, per the invariant enabled=false ⇒ health=offline.
func (r *ModuleRegistry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.modules[name]
	if !ok {
		return ErrUnknownModule
	}
	m.Enabled = enabled
	if !enabled {
		m.Health = HealthOffline
	}
	m.LastUpdated = r.now()
	return nil
}

// MarkHealth attributes a health status to a module. No-op on an unknown
// name (callers are expected to have validated known modules at startup).
func (r *ModuleRegistry) MarkHealth(name string, health Health) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok {
		m.Health = health
		m.LastUpdated = r.now()
	}
}

// UpdateLatency records the latency observed for a module's last operation.
func (r *ModuleRegistry) UpdateLatency(name string, latencyMS float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok {
		m.LatencyMS = latencyMS
		m.LastUpdated = r.now()
	}
}

// IncrementFailure bumps a module's cumulative failure counter. No-op on an
// unknown name.
func (r *ModuleRegistry) IncrementFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok {
		m.FailureCount++
		m.LastUpdated = r.now()
	}
}

// Get returns a copy of a single module's state.
func (r *ModuleRegistry) Get(name string) (ModuleState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	if !ok {
		return ModuleState{}, false
	}
	return *m, true
}

// Snapshot returns a copy of every tracked module's state.
func (r *ModuleRegistry) Snapshot() []ModuleState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModuleState, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, *m)
	}
	return out
}

// StartJitter runs until ctx is cancelled, applying a small drift to every
// module's latency every interval and invoking onTick with the refreshed
// snapshot so callers can broadcast a status event.
func (r *ModuleRegistry) StartJitter(ctx context.Context, interval time.Duration, onTick func([]ModuleState)) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := r.jitterOnce()
			if onTick != nil {
				onTick(snap)
			}
		}
	}
}

func (r *ModuleRegistry) jitterOnce() []ModuleState {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.modules {
		drift := (rand.Float64()*2 - 1) * 5.0 // ±5ms
		m.LatencyMS += drift
		if m.LatencyMS < 1.0 {
			m.LatencyMS = 1.0
		}
		m.LastUpdated = r.now()
	}

	out := make([]ModuleState, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, *m)
	}
	return out
}
