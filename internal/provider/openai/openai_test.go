package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raymondbot/raymond/internal/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: ts.URL + "/v1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("New accepted an empty API key")
	}
	if _, err := NewEmbedder(EmbedderConfig{}); err == nil {
		t.Fatal("NewEmbedder accepted an empty API key")
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-test",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hey hey"}, "finish_reason": "stop"}]
		}`))
	})

	reply, err := c.Generate(context.Background(),
		[]provider.Message{provider.UserMessage("hi")}, provider.ModeRespond)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "hey hey" {
		t.Errorf("reply = %q", reply)
	}
}

func TestGenerate_RateLimit(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit_exceeded"}}`))
	})

	_, err := c.Generate(context.Background(),
		[]provider.Message{provider.UserMessage("hi")}, provider.ModeRespond)
	if !errors.Is(err, provider.ErrRateLimit) {
		t.Fatalf("err = %v, want ErrRateLimit", err)
	}
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "cmpl-test", "object": "chat.completion", "choices": []}`))
	})

	_, err := c.Generate(context.Background(),
		[]provider.Message{provider.UserMessage("hi")}, provider.ModeRespond)
	if !errors.Is(err, provider.ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/embeddings" {
				t.Errorf("path = %q", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"object": "list",
				"data": [{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3]}]
			}`))
		}
	}())
	t.Cleanup(ts.Close)

	e, err := NewEmbedder(EmbedderConfig{APIKey: "test-key", BaseURL: ts.URL + "/v1", Dimensions: 3})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vec = %v", vec)
	}
	if e.Dimensions() != 3 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}

func TestEmbed_ServerError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	e, err := NewEmbedder(EmbedderConfig{APIKey: "test-key", BaseURL: ts.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}

	if _, err := e.Embed(context.Background(), "hello"); !errors.Is(err, provider.ErrEmbedding) {
		t.Fatalf("err = %v, want ErrEmbedding", err)
	}
}
