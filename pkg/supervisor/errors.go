package supervisor

import "errors"

var (
	// ErrPredicateFailed is returned (never fatally) when a service's
	// startup precondition does not hold; the service is skipped, not
	// retried.
	ErrPredicateFailed = errors.New("supervisor: predicate failed")

	// ErrChildCrash marks a child process that exited with a non-zero
	// status or failed to spawn at all.
	ErrChildCrash = errors.New("supervisor: child process crashed")

	// ErrChildHealthFail marks a child terminated after exhausting its
	// health-check retry budget.
	ErrChildHealthFail = errors.New("supervisor: child failed health checks")
)
