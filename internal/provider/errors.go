package provider

import "errors"

// Sentinel errors for the external capabilities.
var (
	// ErrRateLimit indicates the generation backend returned a rate
	// limit response.
	ErrRateLimit = errors.New("provider: rate limited")

	// ErrUnavailable indicates the generation backend is unreachable or
	// temporarily down.
	ErrUnavailable = errors.New("provider: unavailable")

	// ErrMalformedOutput indicates the backend returned a response the
	// client could not interpret (empty body, missing content blocks).
	ErrMalformedOutput = errors.New("provider: malformed output")

	// ErrEmbedding indicates the embedding backend is unreachable or
	// errored. Callers treat this as distinct from generation failures
	// because retrieval degrades gracefully while generation does not.
	ErrEmbedding = errors.New("provider: embedding failed")
)

// IsGenerationError reports whether err is one of the generation failure
// conditions that make a respond-mode turn fail.
func IsGenerationError(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrMalformedOutput)
}
