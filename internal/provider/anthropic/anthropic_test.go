package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raymondbot/raymond/internal/provider"
)

const messageResponse = `{
	"id": "msg_test",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-5-20250929",
	"content": [{"type": "text", "text": "66, what's up"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(Config{APIKey: "test-key", BaseURL: ts.URL})
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(messageResponse))
	})

	msgs := []provider.Message{
		provider.SystemMessage("You are Raymond."),
		provider.UserMessage("hey"),
	}
	reply, err := c.Generate(context.Background(), msgs, provider.ModeRespond)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "66, what's up" {
		t.Errorf("reply = %q", reply)
	}

	// System messages go into the dedicated parameter, not the message list.
	if system, ok := captured["system"].([]any); !ok || len(system) != 1 {
		t.Errorf("system = %v, want one block", captured["system"])
	}
	if reqMsgs, ok := captured["messages"].([]any); !ok || len(reqMsgs) != 1 {
		t.Errorf("messages = %v, want only the user turn", captured["messages"])
	}
	if got := captured["temperature"]; got != 0.8 {
		t.Errorf("temperature = %v, want the respond default 0.8", got)
	}
	if got := captured["max_tokens"]; got != float64(512) {
		t.Errorf("max_tokens = %v, want 512", got)
	}
}

func TestGenerate_ExtractModeSampling(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(messageResponse))
	})

	_, err := c.Generate(context.Background(),
		[]provider.Message{provider.UserMessage("extract")}, provider.ModeExtract)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := captured["temperature"]; got != float64(0) {
		t.Errorf("temperature = %v, want 0 for extraction", got)
	}
	if got := captured["max_tokens"]; got != float64(256) {
		t.Errorf("max_tokens = %v, want 256 for extraction", got)
	}
}

func TestGenerate_RateLimit(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	})

	_, err := c.Generate(context.Background(),
		[]provider.Message{provider.UserMessage("hey")}, provider.ModeRespond)
	if !errors.Is(err, provider.ErrRateLimit) {
		t.Fatalf("err = %v, want ErrRateLimit", err)
	}
}

func TestGenerate_Overloaded(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		w.Write([]byte(`{"type": "error", "error": {"type": "overloaded_error", "message": "overloaded"}}`))
	})

	_, err := c.Generate(context.Background(),
		[]provider.Message{provider.UserMessage("hey")}, provider.ModeRespond)
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestGenerate_NoTextBlock(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_test", "type": "message", "role": "assistant",
			"model": "m", "content": [], "stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 0}
		}`))
	})

	_, err := c.Generate(context.Background(),
		[]provider.Message{provider.UserMessage("hey")}, provider.ModeRespond)
	if !errors.Is(err, provider.ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestModelName(t *testing.T) {
	t.Parallel()

	c := New(Config{APIKey: "k"})
	if got := c.ModelName(); got != defaultModel {
		t.Errorf("ModelName() = %q, want the default", got)
	}
}
