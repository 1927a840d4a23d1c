package tts

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
)

// StreamWSClient dials a websocket synthesis worker in the same pattern the
// teacher's lokutor.go client uses (connect-once, wsjson.Write request,
// binary-frame read loop, "EOS"/"ERR:" text sentinels), but collects the
// full audio and returns a single TTSResult per request — C6 is
// single-shot per the collaborator contract, unlike a raw streaming
// playback client.
type StreamWSClient struct {
	apiKey string
	host   string
	scheme string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStreamWSClient constructs a client dialing host ("wss://<host>/ws").
func NewStreamWSClient(host, apiKey string) *StreamWSClient {
	return &StreamWSClient{apiKey: apiKey, host: host, scheme: "wss"}
}

func (c *StreamWSClient) Name() string {
	return "tts-streamws"
}

func (c *StreamWSClient) getConn(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	u := url.URL{Scheme: c.scheme, Host: c.host, Path: "/ws", RawQuery: "api_key=" + c.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial tts worker: %v", orchestrator.ErrTransientNetwork, err)
	}
	c.conn = conn
	return conn, nil
}

// Synthesize sends one request and accumulates binary frames until the
// "EOS" sentinel, returning the concatenated audio as a single result.
func (c *StreamWSClient) Synthesize(ctx context.Context, req orchestrator.TTSRequest) (orchestrator.TTSResult, error) {
	conn, err := c.getConn(ctx)
	if err != nil {
		return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	wireReq := map[string]interface{}{
		"text":       req.Text,
		"voice":      req.Voice,
		"request_id": req.RequestID,
	}
	if err := wsjson.Write(ctx, conn, wireReq); err != nil {
		c.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write json")
		return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("send synthesis request: %w", err)
	}

	var audio []byte
	result := orchestrator.TTSResult{Status: orchestrator.TTSOk, Voice: req.Voice}

	for {
		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			c.conn = nil
			conn.Close(websocket.StatusAbnormalClosure, "failed to read")
			return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("%w: read from tts worker: %v", orchestrator.ErrTransientNetwork, err)
		}

		switch messageType {
		case websocket.MessageBinary:
			audio = append(audio, payload...)
		case websocket.MessageText:
			msg := string(payload)
			switch {
			case msg == "EOS":
				path, err := writeAudioTempFile(req.RequestID, audio)
				if err != nil {
					return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("persist synthesized audio: %w", err)
				}
				result.AudioPath = path
				return result, nil
			case msg == "BUSY":
				return orchestrator.TTSResult{Status: orchestrator.TTSBusy}, nil
			case len(msg) >= 4 && msg[:4] == "ERR:":
				return orchestrator.TTSResult{Status: orchestrator.TTSFailed}, fmt.Errorf("%w: %s", orchestrator.ErrTTSFailed, msg)
			}
		}
	}
}

func writeAudioTempFile(requestID string, audio []byte) (string, error) {
	pattern := "tts-*.bin"
	if requestID != "" {
		pattern = requestID + "-*.bin"
	}
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(audio); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// Close releases the underlying connection, if any.
func (c *StreamWSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
		return err
	}
	return nil
}
