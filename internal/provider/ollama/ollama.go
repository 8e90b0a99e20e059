// Package ollama implements both capabilities against a local Ollama
// server: chat for generation and the embeddings endpoint for vectors.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/raymondbot/raymond/internal/provider"
)

const defaultBaseURL = "http://localhost:11434"

// Config holds the Ollama backend settings.
type Config struct {
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int

	// NumCtx is the model context window requested from Ollama.
	NumCtx int
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "qwen3:1.7b"
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
		if env := os.Getenv("OLLAMA_HOST"); env != "" {
			c.BaseURL = env
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.8
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 512
	}
	if c.NumCtx == 0 {
		c.NumCtx = 8192
	}
}

// Client is the Ollama-backed provider.Provider.
type Client struct {
	client *api.Client
	cfg    Config
}

var _ provider.Provider = (*Client)(nil)

// New builds a Client.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base url %q: %w", cfg.BaseURL, err)
	}
	return &Client{client: api.NewClient(base, http.DefaultClient), cfg: cfg}, nil
}

// ModelName implements provider.Provider.
func (c *Client) ModelName() string { return c.cfg.Model }

// Generate implements provider.Provider.
func (c *Client) Generate(ctx context.Context, messages []provider.Message, mode provider.Mode) (string, error) {
	sampling := provider.SamplingFor(mode, provider.Sampling{
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})

	apiMsgs := make([]api.Message, len(messages))
	for i, m := range messages {
		apiMsgs[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.cfg.Model,
		Messages: apiMsgs,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": sampling.Temperature,
			"num_predict": sampling.MaxTokens,
			"num_ctx":     c.cfg.NumCtx,
		},
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", mapError(err)
	}
	if content.Len() == 0 {
		return "", fmt.Errorf("%w: empty chat response", provider.ErrMalformedOutput)
	}
	return content.String(), nil
}

// Embedder generates embeddings through Ollama.
type Embedder struct {
	client *api.Client
	model  string
	dims   int
}

var _ provider.Embedder = (*Embedder)(nil)

// EmbedderConfig holds the embedding backend settings.
type EmbedderConfig struct {
	Model   string
	BaseURL string

	// Dimensions of the model's output; defaults to 512 (bge-small).
	Dimensions int
}

// NewEmbedder builds an Embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.Model == "" {
		cfg.Model = "qllama/bge-small-zh-v1.5"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
		if env := os.Getenv("OLLAMA_HOST"); env != "" {
			cfg.BaseURL = env
		}
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 512
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base url %q: %w", cfg.BaseURL, err)
	}
	return &Embedder{
		client: api.NewClient(base, http.DefaultClient),
		model:  cfg.Model,
		dims:   cfg.Dimensions,
	}, nil
}

// Embed implements provider.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrEmbedding, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", provider.ErrEmbedding)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions implements provider.Embedder.
func (e *Embedder) Dimensions() int { return e.dims }

// mapError converts an Ollama API error into the provider sentinel taxonomy.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", provider.ErrRateLimit, err)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
		default:
			return fmt.Errorf("ollama error (HTTP %d): %w", statusErr.StatusCode, err)
		}
	}
	// Connection refused and friends — the local server is not running.
	return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
}
