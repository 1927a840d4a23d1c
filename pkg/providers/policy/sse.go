// Package policy implements a concrete PolicyClient over a streaming
// HTTP/SSE connection to the policy worker.
package policy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
)

// HTTPStreamingClient opens a server-sent-event stream against a policy
// worker endpoint, in the same http.NewRequestWithContext +
// json.Marshal/bearer-auth shape the teacher's HTTP provider clients use,
// generalized to parse named SSE events instead of a single JSON body.
type HTTPStreamingClient struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPStreamingClient constructs a client against the given endpoint.
func NewHTTPStreamingClient(url, apiKey string, timeout time.Duration) *HTTPStreamingClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStreamingClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPStreamingClient) Name() string {
	return "policy-sse"
}

// Invoke opens the stream, calls handler for each named "token"/"retry"
// event in order, and returns the terminal "final" payload. A missing
// event name defaults to "message" and is ignored.
func (c *HTTPStreamingClient) Invoke(ctx context.Context, req orchestrator.PolicyRequest, handler orchestrator.StreamHandler) (*orchestrator.PolicyFinal, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal policy request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build policy request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orchestrator.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: policy endpoint returned status %d", orchestrator.ErrPolicyUnavailable, resp.StatusCode)
	}

	var final *orchestrator.PolicyFinal

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	curEvent := ""
	var curData []string

	emit := func() error {
		name := curEvent
		if name == "" {
			name = "message"
		}
		data := strings.Join(curData, "\n")
		curEvent, curData = "", nil
		return c.dispatch(name, data, handler, &final)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(curData) > 0 || curEvent != "" {
				if err := emit(); err != nil {
					return nil, err
				}
			}
		case strings.HasPrefix(line, "event:"):
			curEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			curData = append(curData, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", orchestrator.ErrTransientNetwork, err)
	}
	if len(curData) > 0 || curEvent != "" {
		if err := emit(); err != nil {
			return nil, err
		}
	}

	if final == nil {
		return nil, orchestrator.ErrPolicyUnavailable
	}
	return final, nil
}

func (c *HTTPStreamingClient) dispatch(name, data string, handler orchestrator.StreamHandler, final **orchestrator.PolicyFinal) error {
	switch name {
	case "start":
		var payload map[string]interface{}
		_ = json.Unmarshal([]byte(data), &payload)
		if handler != nil {
			return handler("start", payload)
		}
	case "token":
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return fmt.Errorf("decode token event: %w", err)
		}
		if handler != nil {
			return handler("token", payload)
		}
	case "retry":
		var payload map[string]interface{}
		_ = json.Unmarshal([]byte(data), &payload)
		if handler != nil {
			return handler("retry", payload)
		}
	case "final":
		var f orchestrator.PolicyFinal
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return fmt.Errorf("decode final event: %w", err)
		}
		*final = &f
	default:
		// unnamed/unknown events default to "message" and are ignored.
	}
	return nil
}
