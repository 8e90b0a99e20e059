// Package memory implements the agent's two memory tiers: a persistent
// vector store of discrete facts retrieved by semantic similarity, and a
// bounded in-memory window of recent conversation turns.
package memory

import (
	"context"
	"errors"
	"time"
)

// Source tags the provenance of a fact.
type Source string

// Fact provenance values.
const (
	// SourceSeed marks facts pre-loaded from the seed file.
	SourceSeed Source = "seed"

	// SourceExtracted marks facts derived from conversation by the
	// extraction stage.
	SourceExtracted Source = "extracted"
)

// Fact is one long-term memory unit. ID and Embedding are assigned at
// insertion and never change.
type Fact struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult pairs a fact with its cosine similarity to the query.
type SearchResult struct {
	Fact       Fact    `json:"fact"`
	Similarity float32 `json:"similarity"`
}

// Sentinel errors for store operations.
var (
	// ErrPersistence indicates the durable write or read of the fact
	// index failed. A failed insert is rolled back before this is
	// returned, so the in-memory index never exposes a partial record.
	ErrPersistence = errors.New("memory: persistence failed")

	// ErrExtractionParse indicates the extraction output could not be
	// parsed into a fact list. Always recovered by the caller.
	ErrExtractionParse = errors.New("memory: unparseable extraction output")
)

// Store is the long-term fact store. It is the sole owner and mutator of
// the fact collection; deduplication policy lives with the caller.
type Store interface {
	// Insert embeds text, assigns an ID, stores the record, and persists
	// the index before returning. Embedding failures wrap
	// provider.ErrEmbedding; persistence failures wrap ErrPersistence.
	Insert(ctx context.Context, text string, source Source) (Fact, error)

	// Search returns up to k facts nearest to query by cosine similarity,
	// in descending order. An empty store yields an empty result, not an
	// error; k larger than the store size is clamped.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Count returns the number of stored facts.
	Count() int
}
