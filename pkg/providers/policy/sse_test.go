package policy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
)

func TestInvokeParsesTokensAndFinal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: token\ndata: {\"token\":\"Hel\"}\n\n")
		fmt.Fprint(w, "event: token\ndata: {\"token\":\"lo\"}\n\n")
		fmt.Fprint(w, "event: final\ndata: {\"content\":\"<speech>Hello</speech>\",\"meta\":{\"status\":\"ok\"},\"request_id\":\"r1\"}\n\n")
	}))
	defer srv.Close()

	client := NewHTTPStreamingClient(srv.URL, "", time.Second)

	var tokens []string
	final, err := client.Invoke(context.Background(), orchestrator.PolicyRequest{RequestID: "r1", Text: "hi"}, func(event string, payload map[string]interface{}) error {
		if event == "token" {
			tokens = append(tokens, payload["token"].(string))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "Hel" || tokens[1] != "lo" {
		t.Fatalf("expected 2 ordered tokens, got %v", tokens)
	}
	if final == nil || final.Content != "<speech>Hello</speech>" {
		t.Fatalf("expected final payload, got %+v", final)
	}
}

func TestInvokeNonOKStatusReturnsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPStreamingClient(srv.URL, "", time.Second)
	_, err := client.Invoke(context.Background(), orchestrator.PolicyRequest{RequestID: "r1"}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestInvokeMissingFinalReturnsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: token\ndata: {\"token\":\"x\"}\n\n")
	}))
	defer srv.Close()

	client := NewHTTPStreamingClient(srv.URL, "", time.Second)
	_, err := client.Invoke(context.Background(), orchestrator.PolicyRequest{RequestID: "r1"}, nil)
	if err != orchestrator.ErrPolicyUnavailable {
		t.Fatalf("expected ErrPolicyUnavailable, got %v", err)
	}
}
