package supervisor

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

const maxRestartDelay = 30 * time.Second

// Supervisor owns a cohort of sibling worker processes and keeps each one
// running according to its ServiceSpec: gated by a startup predicate,
// restarted on crash with exponential backoff, torn down gracefully on
// shutdown. Each service's lifecycle is independent of the others'.
type Supervisor struct {
	services []ServiceSpec
	disabled map[string]struct{}
	logger   Logger
	baseEnv  []string
}

// New builds a Supervisor over services. Names present in disabled are
// skipped entirely — never spawned, never logged as failing.
func New(services []ServiceSpec, disabled []string, logger Logger) *Supervisor {
	d := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		d[name] = struct{}{}
	}
	return &Supervisor{
		services: services,
		disabled: d,
		logger:   orNoOp(logger),
		baseEnv:  os.Environ(),
	}
}

// Run starts a supervise loop per enabled service and blocks until ctx is
// cancelled and every child has been torn down. It never returns a
// non-nil error on a clean, requested shutdown; per-service spawn
// failures are logged and retried rather than propagated, since one
// collaborator's persistent failure should not bring the others down.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range s.services {
		spec := spec
		if _, skip := s.disabled[spec.Name]; skip {
			s.logger.Info("service disabled, skipping", "service", spec.Name)
			continue
		}
		g.Go(func() error {
			s.superviseLoop(gctx, spec)
			return nil
		})
	}
	return g.Wait()
}

// superviseLoop runs spec's predicate gate once, then spawns it
// repeatedly until ctx is cancelled, backing off between crash restarts.
func (s *Supervisor) superviseLoop(ctx context.Context, spec ServiceSpec) {
	if spec.Predicate != nil {
		if ok, reason := spec.Predicate(); !ok {
			s.logger.Info("predicate not satisfied, service will not be started", "service", spec.Name, "reason", reason)
			return
		}
	}

	delay := spec.RestartDelay
	if delay <= 0 {
		delay = time.Second
	}

	for {
		if ctx.Err() != nil {
			return
		}

		result := s.runOnce(ctx, spec)

		if ctx.Err() != nil {
			return
		}
		if !result.crashed || !spec.Restart {
			return
		}

		s.logger.Warn("restarting service after backoff", "service", spec.Name, "exit_code", result.exitCode, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}

		delay *= 2
		if delay > maxRestartDelay {
			delay = maxRestartDelay
		}
	}
}
