// Package orchestrator implements the real-time ASR→policy→TTS conversation
// core: event broker, module registry, persona store, conversation memory,
// streaming reply session and decision engine, wired together by the
// orchestrator state facade.
package orchestrator

import "time"

// Logger is the narrow logging capability every component accepts. Callers
// that don't care pass nil and get NoOpLogger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything. It is the default when no Logger is supplied.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

func orNoOp(l Logger) Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return l
}

// Health is the three-valued status a module is attributed by the engine.
type Health string

const (
	HealthOnline   Health = "online"
	HealthDegraded Health = "degraded"
	HealthOffline  Health = "offline"
)

// EventType names every event shape the broker carries.
type EventType string

const (
	EventASRPartial      EventType = "asr_partial"
	EventASRFinal        EventType = "asr_final"
	EventPolicyToken     EventType = "policy.token"
	EventPolicyFinal     EventType = "policy_final"
	EventTTSChunk        EventType = "tts_chunk"
	EventTTSGenerated    EventType = "tts_generated"
	EventTTSRequest      EventType = "tts_request"
	EventModuleToggle    EventType = "module.toggle"
	EventControlPanic    EventType = "control.panic"
	EventControlMute     EventType = "control.mute"
	EventControlPreset   EventType = "control_preset"
	EventPersonaUpdate   EventType = "persona_update"
	EventMemorySummary   EventType = "memory_summary"
	EventOBSScene        EventType = "obs_scene"
	EventVTSExpression   EventType = "vts_expression"
	EventPipelineMetric  EventType = "pipeline.metric"
	EventStatus          EventType = "status"
)

// Event is a tagged, immutable, value-typed record published through the
// broker. Payload holds the type-specific fields.
type Event struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Published time.Time   `json:"-"`
}

// ModuleState tracks a single downstream worker's enable/health/latency.
// Invariant: Enabled == false implies Health == HealthOffline.
type ModuleState struct {
	Name         string    `json:"name"`
	Enabled      bool      `json:"enabled"`
	Health       Health    `json:"health"`
	LatencyMS    float64   `json:"latency_ms"`
	FailureCount int64     `json:"failure_count"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Persona is the mutable tunable personality state.
type Persona struct {
	Style         string    `json:"style"`
	Chaos         float64   `json:"chaos"`
	Energy        float64   `json:"energy"`
	FamilyMode    bool      `json:"family_mode"`
	ActivePreset  string    `json:"active_preset"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Preset is a named persona default plus an optional system prompt override.
type Preset struct {
	Name         string  `yaml:"name" json:"name"`
	Style        string  `yaml:"style" json:"style"`
	Chaos        float64 `yaml:"chaos" json:"chaos"`
	Energy       float64 `yaml:"energy" json:"energy"`
	FamilyMode   bool    `yaml:"family_mode" json:"family_mode"`
	SystemPrompt string  `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
}

// PersonaUpdate is a partial persona mutation; nil fields are left untouched.
type PersonaUpdate struct {
	Style      *string
	Chaos      *float64
	Energy     *float64
	FamilyMode *bool
}

// Role identifies the speaker of a MemoryTurn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MemoryTurn is one recorded utterance in the conversation.
type MemoryTurn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

// MemorySummary is a periodic rollup of the ring buffer's contents.
type MemorySummary struct {
	ID          int64             `json:"id,omitempty"`
	SummaryText string            `json:"summary_text"`
	MoodState   string            `json:"mood_state"`
	Knobs       map[string]string `json:"knobs,omitempty"`
	TS          time.Time         `json:"ts"`
}

// ASRPartialEvent is an interim speech-recognition hypothesis.
type ASRPartialEvent struct {
	Segment    int       `json:"segment"`
	Text       string    `json:"text"`
	Confidence *float64  `json:"confidence,omitempty"`
	Language   string    `json:"language,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	LatencyMS  *float64  `json:"latency_ms,omitempty"`
}

// ASRFinalEvent is a finalized speech-recognition segment.
type ASRFinalEvent struct {
	ASRPartialEvent
	DurationMS *float64 `json:"duration_ms,omitempty"`
}

// ModuleToggleCommand enables or disables a named downstream worker.
type ModuleToggleCommand struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// PresetCommand applies a named preset atomically.
type PresetCommand struct {
	Name string `json:"name"`
}

// OBSSceneCommand switches the broadcast scene.
type OBSSceneCommand struct {
	Scene string `json:"scene"`
}

// VTSExpressionCommand sets the avatar expression.
type VTSExpressionCommand struct {
	Expression string  `json:"expression"`
	Intensity  float64 `json:"intensity,omitempty"`
}

// PanicRequest asks the engine to halt speech and mute immediately.
type PanicRequest struct {
	Reason string `json:"reason,omitempty"`
}

// MuteRequest toggles global TTS mute.
type MuteRequest struct {
	Muted bool `json:"muted"`
}

// ResumeRequest clears a previously triggered panic state.
//
// Supplemented from the command surface the distilled spec omits; mirrors
// the already-specified panic/mute pair.
type ResumeRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ChatIngestCommand carries a chat-platform message into memory as a user turn.
//
// Supplemented from the command surface the distilled spec omits.
type ChatIngestCommand struct {
	Platform string    `json:"platform"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	TS       time.Time `json:"ts"`
}

// Config holds the tunables for the conversation core.
type Config struct {
	MemoryCapacity     int
	SummaryInterval    int
	RestoreWindow      time.Duration
	RegistryJitter     time.Duration
	BrokerQueueDepth   int
	SegmentPruneMax    int
	SegmentPruneAge    time.Duration
	MinChunkChars      int
	MaxChunkChars      int
	RecentMemoryTurns  int
	PolicyTimeout      time.Duration
	TTSTimeout         time.Duration
}

// DefaultConfig returns the tunables named throughout the component design.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:    40,
		SummaryInterval:   6,
		RestoreWindow:     24 * time.Hour,
		RegistryJitter:    5 * time.Second,
		BrokerQueueDepth:  256,
		SegmentPruneMax:   64,
		SegmentPruneAge:   300 * time.Second,
		MinChunkChars:     60,
		MaxChunkChars:     220,
		RecentMemoryTurns: 6,
		PolicyTimeout:     30 * time.Second,
		TTSTimeout:        60 * time.Second,
	}
}
