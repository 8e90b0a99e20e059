// Package anthropic implements the generation capability on the Anthropic
// Messages API. Anthropic offers no embedding endpoint, so this backend
// pairs with the openai or ollama embedder.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/raymondbot/raymond/internal/provider"
)

// defaultModel is pinned to a dated release for reproducibility.
const defaultModel = "claude-sonnet-4-5-20250929"

// Config holds the Anthropic backend settings.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = 0.8
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 512
	}
}

// Client is the Anthropic-backed provider.Provider.
type Client struct {
	client sdk.Client
	cfg    Config
}

var _ provider.Provider = (*Client)(nil)

// New builds a Client. The API key falls back to ANTHROPIC_API_KEY via the
// SDK's own environment handling when cfg.APIKey is empty.
func New(cfg Config) *Client {
	cfg.defaults()

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	// No SDK-level retries: the orchestrator deliberately has no retry
	// policy, failures must surface.
	opts = append(opts, option.WithMaxRetries(0))

	return &Client{client: sdk.NewClient(opts...), cfg: cfg}
}

// ModelName implements provider.Provider.
func (c *Client) ModelName() string { return c.cfg.Model }

// Generate implements provider.Provider.
func (c *Client) Generate(ctx context.Context, messages []provider.Message, mode provider.Mode) (string, error) {
	sampling := provider.SamplingFor(mode, provider.Sampling{
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})

	system, rest := splitSystem(messages)
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.cfg.Model),
		System:      system,
		Messages:    convertMessages(rest),
		MaxTokens:   int64(sampling.MaxTokens),
		Temperature: sdk.Float(sampling.Temperature),
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	text := textContent(msg)
	if text == "" {
		return "", fmt.Errorf("%w: response contained no text block", provider.ErrMalformedOutput)
	}
	return text, nil
}

// splitSystem extracts leading system messages into Anthropic's dedicated
// System parameter and returns the remaining messages.
func splitSystem(msgs []provider.Message) ([]sdk.TextBlockParam, []provider.Message) {
	var system []sdk.TextBlockParam
	idx := 0
	for ; idx < len(msgs); idx++ {
		if msgs[idx].Role != provider.MessageRoleSystem {
			break
		}
		system = append(system, sdk.TextBlockParam{Text: msgs[idx].Content})
	}
	return system, msgs[idx:]
}

func convertMessages(msgs []provider.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case provider.MessageRoleAssistant:
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	return out
}

func textContent(msg *sdk.Message) string {
	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok {
			if text != "" {
				text += "\n"
			}
			text += tb.Text
		}
	}
	return text
}

// mapError converts an SDK error into the provider sentinel taxonomy.
// Context errors pass through so cancellation stays recognisable.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}

	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", provider.ErrRateLimit, err)
	case 529, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	default:
		return fmt.Errorf("anthropic error (HTTP %d): %w", apiErr.StatusCode, err)
	}
}
