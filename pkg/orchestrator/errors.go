package orchestrator

import "errors"

// Error taxonomy kinds. The core never crashes on a collaborator's fault:
// these sentinels drive module health attribution and logging, never a panic.
var (
	// ErrTransientNetwork marks a recoverable network failure talking to a
	// policy/TTS/telemetry collaborator. Logged and swallowed; the owning
	// module is marked degraded or offline.
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrPolicyBusy signals the policy worker deferred the request.
	ErrPolicyBusy = errors.New("policy worker busy")

	// ErrPolicyUnavailable signals a null/unrecoverable policy response.
	ErrPolicyUnavailable = errors.New("policy worker unavailable")

	// ErrDuplicateSegment marks a segment id already active or completed.
	ErrDuplicateSegment = errors.New("duplicate segment")

	// ErrUnknownModule is returned by toggle_module for an unregistered name.
	ErrUnknownModule = errors.New("unknown module")

	// ErrUnknownPreset is returned by apply_preset for an unregistered name.
	ErrUnknownPreset = errors.New("unknown preset")

	// ErrSubscriberBacklog marks a broker subscriber queue overflow.
	ErrSubscriberBacklog = errors.New("subscriber backlog")

	// ErrCancelled propagates shutdown/context cancellation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrBadRequest marks ingress validation failures.
	ErrBadRequest = errors.New("bad request")

	// ErrTTSBusy marks a TTS collaborator refusing under resource pressure.
	ErrTTSBusy = errors.New("tts worker busy")

	// ErrTTSFailed marks a hard TTS failure.
	ErrTTSFailed = errors.New("tts synthesis failed")

	// ErrNilProvider is returned when a required collaborator was not configured.
	ErrNilProvider = errors.New("required provider is nil")

	// ErrSessionClosed is returned by operations on a closed StreamingReplySession.
	ErrSessionClosed = errors.New("streaming reply session closed")
)
