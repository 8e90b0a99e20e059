// Package provider defines the interfaces to the external language-model
// capabilities the agent consumes: text generation and text embedding.
// Concrete implementations live in subpackages (anthropic, openai, ollama).
package provider

import "context"

// Mode selects the instruction framing and sampling behaviour of a
// generation call.
type Mode string

// Generation modes.
const (
	// ModeRespond produces the persona's conversational reply.
	ModeRespond Mode = "respond"

	// ModeExtract produces machine-parseable fact statements and runs
	// deterministically (temperature 0, reduced token cap).
	ModeExtract Mode = "extract"
)

// Provider is the interface for communicating with an LLM backend.
type Provider interface {
	// Generate sends the assembled message sequence and returns the
	// response text. Failures are distinguishable via errors.Is against
	// ErrRateLimit, ErrUnavailable, and ErrMalformedOutput.
	Generate(ctx context.Context, messages []Message, mode Mode) (string, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	// Embed returns the embedding for text. A failure is reported as an
	// error wrapping ErrEmbedding, never as a zero vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Sampling holds the generation parameters resolved for a single call.
type Sampling struct {
	Temperature float64
	MaxTokens   int
}

// SamplingFor resolves the sampling parameters for a mode. Respond mode
// uses the configured conversational settings; extract mode overrides them
// with deterministic, short-output settings so the JSON fact list parses
// reliably.
func SamplingFor(mode Mode, respond Sampling) Sampling {
	if mode == ModeExtract {
		return Sampling{Temperature: 0, MaxTokens: 256}
	}
	return respond
}
