package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/raymondbot/raymond/internal/provider"
)

// collectionName is the single chromem collection holding all facts.
// One persona, one shared store.
const collectionName = "facts"

// VectorStore persists facts in an embedded chromem-go database. When
// opened with a path, every insert is written through to disk before it
// returns; without a path the store is purely in-memory (tests, throwaway
// sessions).
//
// All embeddings in one store instance come from the same Embedder, so
// dimensionality is uniform by construction; Insert still verifies it.
type VectorStore struct {
	mu       sync.Mutex
	col      *chromem.Collection
	embedder provider.Embedder
	logger   *slog.Logger
}

var _ Store = (*VectorStore)(nil)

// StoreOptions configures Open.
type StoreOptions struct {
	// Path is the directory for the durable index. Empty means in-memory
	// only.
	Path string

	// SeedFile is a JSON file of initial facts, loaded only when the
	// durable index does not exist yet. Empty disables seeding.
	SeedFile string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Open rehydrates the store from the durable index if present, otherwise
// initializes it (from the seed file, when configured).
func Open(ctx context.Context, embedder provider.Embedder, opts StoreOptions) (*VectorStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var db *chromem.DB
	if opts.Path != "" {
		var err error
		db, err = chromem.NewPersistentDB(opts.Path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: opening index at %s: %v", ErrPersistence, opts.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	// The embedding func is never called: documents and queries always
	// carry pre-computed vectors from our own Embedder.
	col, err := db.GetOrCreateCollection(collectionName, nil, func(_ context.Context, _ string) ([]float32, error) {
		return nil, fmt.Errorf("memory: collection embedding func must not be used")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection: %v", ErrPersistence, err)
	}

	s := &VectorStore{col: col, embedder: embedder, logger: logger}

	if col.Count() == 0 && opts.SeedFile != "" {
		n, err := s.loadSeeds(ctx, opts.SeedFile)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			logger.Info("seeded long-term memory", "facts", n, "file", opts.SeedFile)
		}
	} else {
		logger.Info("long-term memory loaded", "facts", col.Count())
	}

	return s, nil
}

// seedFile mirrors the memories.json layout: {"memories":[{"fact":...}]}.
type seedFile struct {
	Memories []struct {
		Fact  string `json:"fact"`
		Topic string `json:"topic"`
	} `json:"memories"`
}

func (s *VectorStore) loadSeeds(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("memory: reading seed file %s: %w", path, err)
	}

	var seeds seedFile
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return 0, fmt.Errorf("memory: parsing seed file %s: %w", path, err)
	}

	n := 0
	for _, m := range seeds.Memories {
		if m.Fact == "" {
			continue
		}
		if _, err := s.Insert(ctx, m.Fact, SourceSeed); err != nil {
			return n, fmt.Errorf("memory: seeding %q: %w", m.Fact, err)
		}
		n++
	}
	return n, nil
}

// Insert implements Store. The write is atomic from the caller's view: if
// the durable write fails, the in-memory entry is removed again before the
// error is returned.
func (s *VectorStore) Insert(ctx context.Context, text string, source Source) (Fact, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return Fact{}, err
	}
	if len(vec) != s.embedder.Dimensions() {
		return Fact{}, fmt.Errorf("%w: got %d dimensions, want %d",
			provider.ErrEmbedding, len(vec), s.embedder.Dimensions())
	}
	vec = normalize(vec)

	fact := Fact{
		ID:        uuid.NewString(),
		Text:      text,
		Embedding: vec,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.col.AddDocument(ctx, chromem.Document{
		ID:        fact.ID,
		Content:   fact.Text,
		Embedding: fact.Embedding,
		Metadata: map[string]string{
			"source":     string(fact.Source),
			"created_at": fact.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		// Roll back so a failed persist leaves no partial record visible.
		if delErr := s.col.Delete(ctx, nil, nil, fact.ID); delErr != nil {
			s.logger.Warn("rollback after failed insert also failed",
				"id", fact.ID, "error", delErr)
		}
		return Fact{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return fact, nil
}

// Search implements Store.
func (s *VectorStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	count := s.col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	vec = normalize(vec)

	results, err := s.col.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("memory: query: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			Fact:       factFromResult(r),
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// Count implements Store.
func (s *VectorStore) Count() int {
	return s.col.Count()
}

func factFromResult(r chromem.Result) Fact {
	createdAt, _ := time.Parse(time.RFC3339Nano, r.Metadata["created_at"])
	return Fact{
		ID:        r.ID,
		Text:      r.Content,
		Embedding: r.Embedding,
		Source:    Source(r.Metadata["source"]),
		CreatedAt: createdAt,
	}
}

// normalize scales vec to unit length so stored similarities are true
// cosine similarities.
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
