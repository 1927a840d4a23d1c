package orchestrator

import "context"

// TTSRequest is a single-shot synthesis request. At most one outstanding
// request per RequestID is permitted by the collaborator contract.
type TTSRequest struct {
	Text      string `json:"text"`
	Voice     string `json:"voice,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// TTSStatus tags the outcome of a synthesis call: Ok carries a result,
// Busy means the worker refused under resource pressure, Failed is a hard
// failure. Modeled as a tagged result rather than an exception, per the
// client-boundary design note.
type TTSStatus string

const (
	TTSOk     TTSStatus = "ok"
	TTSBusy   TTSStatus = "busy"
	TTSFailed TTSStatus = "failed"
)

// TTSResult is the outcome of a TTS invocation.
type TTSResult struct {
	Status    TTSStatus
	AudioPath string   `json:"audio_path,omitempty"`
	Voice     string   `json:"voice,omitempty"`
	LatencyMS float64  `json:"latency_ms,omitempty"`
	Visemes   []string `json:"visemes,omitempty"`
	Cached    bool     `json:"cached,omitempty"`
}

// TTSClient performs single-shot synthesis. Latency is measured end-to-end
// by the caller, not the client.
type TTSClient interface {
	Synthesize(ctx context.Context, req TTSRequest) (TTSResult, error)
	Name() string
}
