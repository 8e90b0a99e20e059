// Package providertest provides fake Provider and Embedder implementations
// for tests.
package providertest

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/raymondbot/raymond/internal/provider"
)

// Call records one Generate invocation.
type Call struct {
	Messages []provider.Message
	Mode     provider.Mode
}

// FakeProvider is a scripted provider.Provider. Responses are returned per
// mode; errors take precedence over responses.
type FakeProvider struct {
	mu sync.Mutex

	// RespondText and ExtractText are returned for the matching mode.
	RespondText string
	ExtractText string

	// RespondErr and ExtractErr, when non-nil, are returned for the
	// matching mode instead of text.
	RespondErr error
	ExtractErr error

	calls []Call
}

var _ provider.Provider = (*FakeProvider)(nil)

// Generate implements provider.Provider.
func (f *FakeProvider) Generate(ctx context.Context, messages []provider.Message, mode provider.Mode) (string, error) {
	f.mu.Lock()
	msgs := make([]provider.Message, len(messages))
	copy(msgs, messages)
	f.calls = append(f.calls, Call{Messages: msgs, Mode: mode})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if mode == provider.ModeExtract {
		if f.ExtractErr != nil {
			return "", f.ExtractErr
		}
		return f.ExtractText, nil
	}
	if f.RespondErr != nil {
		return "", f.RespondErr
	}
	return f.RespondText, nil
}

// ModelName implements provider.Provider.
func (f *FakeProvider) ModelName() string { return "fake-model" }

// Calls returns a copy of all recorded Generate invocations.
func (f *FakeProvider) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]Call, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// CallsForMode returns the recorded invocations matching mode.
func (f *FakeProvider) CallsForMode(mode provider.Mode) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Mode == mode {
			out = append(out, c)
		}
	}
	return out
}

// FakeEmbedder produces deterministic unit vectors derived from the text
// hash, so identical texts always embed identically. Vectors for specific
// texts can be pinned via Fixed to control similarity in tests.
type FakeEmbedder struct {
	// Dim is the vector size; defaults to 8 when zero.
	Dim int

	// Err, when non-nil, is returned from every Embed call.
	Err error

	// Fixed maps exact texts to pinned vectors, bypassing hashing.
	Fixed map[string][]float32
}

var _ provider.Embedder = (*FakeEmbedder)(nil)

// Embed implements provider.Embedder.
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if vec, ok := f.Fixed[text]; ok {
		return normalize(vec), nil
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, f.Dimensions())
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec), nil
}

// Dimensions implements provider.Embedder.
func (f *FakeEmbedder) Dimensions() int {
	if f.Dim == 0 {
		return 8
	}
	return f.Dim
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v * scale
	}
	return out
}
