package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// sentenceTerminators are the characters (or multi-rune sequences) a chunk
// may end on. Checked against the last non-whitespace rune(s) of the
// stripped buffer.
var sentenceTerminators = []string{".", "!", "?", "…", "。", "！", "？"}

func endsWithTerminator(trimmed string) bool {
	if strings.HasSuffix(trimmed, "...") {
		return true
	}
	for _, t := range sentenceTerminators {
		if strings.HasSuffix(trimmed, t) {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func (s *StreamingReplySession) markLatencyFor(module string, latencyMS float64) {
	if s.markLatency != nil {
		s.markLatency(module, latencyMS)
	}
}

type chunkJob struct {
	index int
	text  string
}

// StreamingReplySession transforms a token stream into an ordered sequence
// of sentence-bounded chunks, dispatched to a TTSClient one at a time by a
// single consumer goroutine, while emitting pipeline-stage metrics.
//
// Chunking policy: MIN_CHARS=60, MAX_CHARS=220 by default (overridable via
// Config); a flush is forced at MAX_CHARS, otherwise triggered once the
// stripped buffer reaches MIN_CHARS and ends on a sentence terminator.
// Finalize flushes any residual text regardless of length. Retry discards
// the buffer but preserves the chunk counter.
type StreamingReplySession struct {
	mu     sync.Mutex
	buffer strings.Builder

	chunkIndex    int
	chunksEmitted int

	policyStartedAt time.Time
	firstTokenAt    time.Time
	ttsFirstChunkAt time.Time

	synthesize bool
	closed     bool
	closeOnce  sync.Once

	lastVoice     string
	requestIDBase string

	cfg         Config
	tts         TTSClient
	publish     func(Event)
	markLatency func(module string, latencyMS float64)
	logger      Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan chunkJob
	wg     sync.WaitGroup
}

// NewStreamingReplySession constructs a session. synthesize=false (the
// engine sets this when TTS is globally muted) means tokens are still
// chunked for bookkeeping but no chunk is ever dispatched to the TTS
// client and RequiresFallback never reports true.
func NewStreamingReplySession(ctx context.Context, requestIDBase string, voice string, synthesize bool, tts TTSClient, publish func(Event), markLatency func(module string, latencyMS float64), cfg Config, logger Logger) *StreamingReplySession {
	sctx, cancel := context.WithCancel(ctx)
	s := &StreamingReplySession{
		requestIDBase:   requestIDBase,
		lastVoice:       voice,
		synthesize:      synthesize,
		cfg:             cfg,
		tts:             tts,
		publish:         publish,
		markLatency:     markLatency,
		logger:          orNoOp(logger),
		ctx:             sctx,
		cancel:          cancel,
		queue:           make(chan chunkJob, 8),
		policyStartedAt: time.Now(),
	}
	s.wg.Add(1)
	go s.consume()
	return s
}

// HandleToken appends an incremental text fragment, flushing a chunk when
// the policy is satisfied.
func (s *StreamingReplySession) HandleToken(token string) {
	s.mu.Lock()
	first := s.firstTokenAt.IsZero()
	if first {
		s.firstTokenAt = time.Now()
	}
	s.buffer.WriteString(token)
	var chunkText string
	if s.shouldFlushLocked() {
		chunkText = s.drainLocked()
	}
	s.mu.Unlock()

	if first {
		latency := round2(float64(s.firstTokenAt.Sub(s.policyStartedAt).Microseconds()) / 1000.0)
		s.markLatencyFor("policy_worker", latency)
		s.publish(Event{Type: EventPipelineMetric, Payload: map[string]interface{}{
			"stage": "policy_first_token", "latency_ms": latency,
		}})
	}
	s.publish(Event{Type: EventPolicyToken, Payload: map[string]interface{}{"token": token}})

	if chunkText != "" {
		s.dispatch(chunkText)
	}
}

// HandleRetry discards the buffered text but preserves the chunk counter.
func (s *StreamingReplySession) HandleRetry(reason string) {
	s.mu.Lock()
	s.buffer.Reset()
	s.mu.Unlock()
}

// Finalize flushes any residual buffered text, even below MIN_CHARS.
func (s *StreamingReplySession) Finalize() {
	s.mu.Lock()
	remaining := s.drainLocked()
	s.mu.Unlock()

	if remaining != "" {
		s.dispatch(remaining)
	}
}

func (s *StreamingReplySession) shouldFlushLocked() bool {
	text := s.buffer.String()
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if utf8.RuneCountInString(text) >= s.cfg.MaxChunkChars {
		return true
	}
	return utf8.RuneCountInString(trimmed) >= s.cfg.MinChunkChars && endsWithTerminator(trimmed)
}

func (s *StreamingReplySession) drainLocked() string {
	text := strings.TrimSpace(s.buffer.String())
	s.buffer.Reset()
	return text
}

// dispatch assigns the next strictly-increasing index and hands the chunk
// to the single consumer. No-op when the session isn't synthesizing.
func (s *StreamingReplySession) dispatch(text string) {
	if !s.synthesize {
		return
	}
	s.mu.Lock()
	idx := s.chunkIndex
	s.chunkIndex++
	s.mu.Unlock()

	select {
	case s.queue <- chunkJob{index: idx, text: text}:
	case <-s.ctx.Done():
	}
}

func (s *StreamingReplySession) consume() {
	defer s.wg.Done()
	for job := range s.queue {
		s.synthesizeChunk(job)
	}
}

func (s *StreamingReplySession) synthesizeChunk(job chunkJob) {
	if s.tts == nil {
		return
	}
	reqID := fmt.Sprintf("%s-chunk-%d", s.requestIDBase, job.index)

	start := time.Now()
	result, err := s.tts.Synthesize(s.ctx, TTSRequest{Text: job.text, Voice: s.lastVoice, RequestID: reqID})
	latency := round2(float64(time.Since(start).Microseconds()) / 1000.0)
	s.markLatencyFor("tts_worker", latency)

	if err != nil || result.Status != TTSOk {
		s.logger.Warn("tts chunk synthesis failed", "index", job.index, "error", err, "status", result.Status)
		return
	}

	s.mu.Lock()
	first := s.chunksEmitted == 0
	s.chunksEmitted++
	if first {
		s.ttsFirstChunkAt = time.Now()
	}
	s.mu.Unlock()

	if first {
		firstLatency := round2(float64(s.ttsFirstChunkAt.Sub(s.policyStartedAt).Microseconds()) / 1000.0)
		s.publish(Event{Type: EventPipelineMetric, Payload: map[string]interface{}{
			"stage": "tts_first_chunk", "latency_ms": firstLatency,
		}})
	}

	s.publish(Event{Type: EventTTSChunk, Payload: map[string]interface{}{
		"index":       job.index,
		"request_id":  reqID,
		"audio_path":  result.AudioPath,
		"voice":       result.Voice,
		"latency_ms":  latency,
		"text_length": len(job.text),
		"mode":        "streaming",
	}})
}

// Close signals the consumer to drain, awaits it, and publishes the
// terminal policy_total metric. Idempotent; safe to call after a context
// cancellation — the metric is still published.
func (s *StreamingReplySession) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		total := round2(float64(time.Since(s.policyStartedAt).Microseconds()) / 1000.0)
		s.mu.Unlock()

		s.publish(Event{Type: EventPipelineMetric, Payload: map[string]interface{}{
			"stage": "policy_total", "latency_ms": total,
		}})
		s.cancel()
	})
}

// RequiresFallback reports whether streaming was requested (synthesize
// true) but the session closed having dispatched zero chunks, signalling
// the engine to perform a single whole-text fallback synthesis.
func (s *StreamingReplySession) RequiresFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed && s.synthesize && s.chunksEmitted == 0
}

// ChunksEmitted reports how many chunks were successfully synthesized.
func (s *StreamingReplySession) ChunksEmitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunksEmitted
}
