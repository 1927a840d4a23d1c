// Package tts implements concrete TTSClient collaborators: a JSON HTTP
// variant and a websocket-framed streaming variant.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
)

// HTTPClient performs single-shot synthesis over a JSON HTTP endpoint, in
// the teacher's http.NewRequestWithContext + json.Marshal/NewDecoder shape.
type HTTPClient struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPClient constructs a client against the given synthesis endpoint.
func NewHTTPClient(url, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Name() string {
	return "tts-http"
}

type ttsHTTPResponse struct {
	AudioPath string   `json:"audio_path"`
	Voice     string   `json:"voice"`
	LatencyMS float64  `json:"latency_ms"`
	Visemes   []string `json:"visemes"`
	Cached    bool     `json:"cached"`
	Status    string   `json:"status"`
}

// Synthesize posts the request and maps a {status:"busy"} response to
// TTSBusy, a non-2xx or decode failure to an error, and otherwise TTSOk.
func (c *HTTPClient) Synthesize(ctx context.Context, req orchestrator.TTSRequest) (orchestrator.TTSResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("marshal tts request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("build tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("%w: %v", orchestrator.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("%w: tts endpoint returned status %d", orchestrator.ErrTTSFailed, resp.StatusCode)
	}

	var out ttsHTTPResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("decode tts response: %w", err)
	}

	if out.Status == "busy" {
		return orchestrator.TTSResult{Status: orchestrator.TTSBusy}, nil
	}

	return orchestrator.TTSResult{
		Status:    orchestrator.TTSOk,
		AudioPath: out.AudioPath,
		Voice:     out.Voice,
		LatencyMS: out.LatencyMS,
		Visemes:   out.Visemes,
		Cached:    out.Cached,
	}, nil
}
