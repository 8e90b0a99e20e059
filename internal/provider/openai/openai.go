// Package openai implements both capabilities on the OpenAI API:
// chat completions for generation and the embeddings endpoint for vectors.
// It also serves OpenAI-compatible servers via BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/raymondbot/raymond/internal/provider"
)

// Config holds the OpenAI backend settings.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = goopenai.GPT4o
	}
	if c.Temperature == 0 {
		c.Temperature = 0.8
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 512
	}
}

// Client is the OpenAI-backed provider.Provider.
type Client struct {
	client *goopenai.Client
	cfg    Config
}

var _ provider.Provider = (*Client)(nil)

// New builds a Client.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{client: goopenai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

// ModelName implements provider.Provider.
func (c *Client) ModelName() string { return c.cfg.Model }

// Generate implements provider.Provider.
func (c *Client) Generate(ctx context.Context, messages []provider.Message, mode provider.Mode) (string, error) {
	sampling := provider.SamplingFor(mode, provider.Sampling{
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})

	reqMsgs := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		reqMsgs[i] = goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    reqMsgs,
		Temperature: float32(sampling.Temperature),
		MaxTokens:   sampling.MaxTokens,
	})
	if err != nil {
		return "", mapError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", provider.ErrMalformedOutput)
	}
	return resp.Choices[0].Message.Content, nil
}

// Embedder generates embeddings through the OpenAI embeddings endpoint.
type Embedder struct {
	client *goopenai.Client
	model  string
	dims   int
}

var _ provider.Embedder = (*Embedder)(nil)

// EmbedderConfig holds the embedding backend settings.
type EmbedderConfig struct {
	APIKey  string
	Model   string
	BaseURL string

	// Dimensions of the model's output; defaults to 1536
	// (text-embedding-3-small).
	Dimensions int
}

// NewEmbedder builds an Embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(goopenai.SmallEmbedding3)
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		dims:   cfg.Dimensions,
	}, nil
}

// Embed implements provider.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrEmbedding, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", provider.ErrEmbedding)
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions implements provider.Embedder.
func (e *Embedder) Dimensions() int { return e.dims }

// mapError converts a go-openai error into the provider sentinel taxonomy.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", provider.ErrRateLimit, err)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
		default:
			return fmt.Errorf("openai error (HTTP %d): %w", apiErr.HTTPStatusCode, err)
		}
	}
	return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
}
