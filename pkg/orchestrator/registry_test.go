package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestNewModuleRegistrySeedsOnlineEnabled(t *testing.T) {
	r := NewModuleRegistry([]string{"asr_worker", "tts_worker"})

	m, ok := r.Get("asr_worker")
	if !ok {
		t.Fatal("expected asr_worker to be seeded")
	}
	if !m.Enabled || m.Health != HealthOnline {
		t.Fatalf("expected enabled+online seed, got %+v", m)
	}
}

func TestSetEnabledFalseForcesOffline(t *testing.T) {
	r := NewModuleRegistry([]string{"tts_worker"})
	r.MarkHealth("tts_worker", HealthDegraded)

	if err := r.SetEnabled("tts_worker", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, _ := r.Get("tts_worker")
	if m.Enabled {
		t.Fatal("expected module disabled")
	}
	if m.Health != HealthOffline {
		t.Fatalf("expected disabling to force offline, got %v", m.Health)
	}
}

func TestSetEnabledUnknownModule(t *testing.T) {
	r := NewModuleRegistry(nil)
	if err := r.SetEnabled("ghost", true); err != ErrUnknownModule {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
}

func TestSnapshotReturnsAllModules(t *testing.T) {
	r := NewModuleRegistry([]string{"a", "b", "c"})
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(snap))
	}
}

func TestUpdateLatencyRecordsValue(t *testing.T) {
	r := NewModuleRegistry([]string{"policy_worker"})
	r.UpdateLatency("policy_worker", 42.5)

	m, _ := r.Get("policy_worker")
	if m.LatencyMS != 42.5 {
		t.Fatalf("expected latency 42.5, got %v", m.LatencyMS)
	}
}

func TestIncrementFailureAccumulates(t *testing.T) {
	r := NewModuleRegistry([]string{"policy_worker"})
	r.IncrementFailure("policy_worker")
	r.IncrementFailure("policy_worker")

	m, _ := r.Get("policy_worker")
	if m.FailureCount != 2 {
		t.Fatalf("expected failure count 2, got %d", m.FailureCount)
	}

	// Unknown module is a no-op, never a panic.
	r.IncrementFailure("ghost")
}

func TestStartJitterInvokesCallback(t *testing.T) {
	r := NewModuleRegistry([]string{"a"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ticks := 0
	done := make(chan struct{})
	go func() {
		r.StartJitter(ctx, 10*time.Millisecond, func(snap []ModuleState) {
			ticks++
		})
		close(done)
	}()

	<-done
	if ticks == 0 {
		t.Fatal("expected at least one jitter tick")
	}
}
