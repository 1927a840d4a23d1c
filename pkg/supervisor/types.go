// Package supervisor launches, predicate-gates, health-probes, and
// backoff-restarts a cohort of sibling worker processes (ASR, policy,
// TTS, avatar, OBS, chat ingest).
package supervisor

import "time"

// Predicate is a precondition evaluated once before a service is spawned;
// pure, synchronous, side-effect-free. It returns (ok, reason) — reason is
// only meaningful when ok is false.
type Predicate func() (bool, string)

// HealthCheck configures an HTTP liveness probe for a spawned child.
type HealthCheck struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration
	Retries  int
}

// ServiceSpec defines one managed child process.
type ServiceSpec struct {
	Name         string
	Argv         []string
	Restart      bool
	RestartDelay time.Duration
	EnvOverrides map[string]string
	Predicate    Predicate
	HealthCheck  *HealthCheck
}
