package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"
)

type testLogger struct {
	t *testing.T
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Logf("DEBUG "+msg, args...) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Logf("INFO "+msg, args...) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Logf("WARN "+msg, args...) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Logf("ERROR "+msg, args...) }

func TestRunStopsCleanlyOnContextCancel(t *testing.T) {
	spec := ServiceSpec{
		Name:    "sleeper",
		Argv:    []string{"sh", "-c", "sleep 30"},
		Restart: true,
	}
	s := New([]ServiceSpec{spec}, nil, testLogger{t})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not shut down within timeout")
	}
}

func TestRunSkipsDisabledServices(t *testing.T) {
	spec := ServiceSpec{Name: "never", Argv: []string{"sh", "-c", "sleep 30"}}
	s := New([]ServiceSpec{spec}, []string{"never"}, testLogger{t})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// restartRecorder records the wall-clock time of every "service started"
// log line, letting a test observe the actual restart cadence rather than
// just that the supervisor didn't crash.
type restartRecorder struct {
	mu     sync.Mutex
	starts []time.Time
}

func (r *restartRecorder) Debug(msg string, args ...interface{}) {}
func (r *restartRecorder) Warn(msg string, args ...interface{})  {}
func (r *restartRecorder) Error(msg string, args ...interface{}) {}
func (r *restartRecorder) Info(msg string, args ...interface{}) {
	if msg != "service started" {
		return
	}
	r.mu.Lock()
	r.starts = append(r.starts, time.Now())
	r.mu.Unlock()
}

func TestRunRestartsAfterCrashWithBackoff(t *testing.T) {
	spec := ServiceSpec{
		Name:         "crasher",
		Argv:         []string{"sh", "-c", "exit 1"},
		Restart:      true,
		RestartDelay: 20 * time.Millisecond,
	}
	rec := &restartRecorder{}
	s := New([]ServiceSpec{spec}, nil, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	_ = s.Run(ctx)
	// An always-crashing child with Restart=true must keep cycling through
	// backoff rather than propagating an error out of Run, and the gap
	// between successive spawns should grow (d, 2d, 4d, ... per superviseLoop).

	rec.mu.Lock()
	starts := append([]time.Time(nil), rec.starts...)
	rec.mu.Unlock()

	if len(starts) < 3 {
		t.Fatalf("expected at least 3 restarts within the window, got %d", len(starts))
	}

	d1 := starts[1].Sub(starts[0])
	d2 := starts[2].Sub(starts[1])
	if d2 <= d1 {
		t.Fatalf("expected backoff delay to grow between restarts, got d1=%v d2=%v", d1, d2)
	}
}

func TestPredicateFailurePreventsSpawn(t *testing.T) {
	spec := ServiceSpec{
		Name:      "gated",
		Argv:      []string{"sh", "-c", "sleep 30"},
		Predicate: func() (bool, string) { return false, "not ready" },
	}
	s := New([]ServiceSpec{spec}, nil, testLogger{t})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCleanExitWithRestartDoesNotLoop(t *testing.T) {
	spec := ServiceSpec{
		Name:    "once",
		Argv:    []string{"sh", "-c", "exit 0"},
		Restart: true,
	}
	s := New([]ServiceSpec{spec}, nil, testLogger{t})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
