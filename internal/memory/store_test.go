package memory_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/raymondbot/raymond/internal/memory"
	"github.com/raymondbot/raymond/internal/provider"
	"github.com/raymondbot/raymond/internal/provider/providertest"
)

// Compile-time interface guard.
var _ memory.Store = (*memory.VectorStore)(nil)

func openStore(t *testing.T, embedder provider.Embedder, opts memory.StoreOptions) *memory.VectorStore {
	t.Helper()
	s, err := memory.Open(context.Background(), embedder, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestVectorStore_InsertAndCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openStore(t, &providertest.FakeEmbedder{}, memory.StoreOptions{})

	fact, err := s.Insert(ctx, "the user enjoys chess", memory.SourceExtracted)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if fact.ID == "" {
		t.Error("Insert assigned no ID")
	}
	if fact.Source != memory.SourceExtracted {
		t.Errorf("Source = %q, want extracted", fact.Source)
	}
	if fact.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if got := s.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
}

func TestVectorStore_SearchOrderingAndClamp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	embedder := &providertest.FakeEmbedder{
		Dim: 4,
		Fixed: map[string][]float32{
			"query": {1, 0, 0, 0},
			"close": {0.9, 0.1, 0, 0},
			"mid":   {0.5, 0.5, 0, 0},
			"far":   {0, 1, 0, 0},
		},
	}
	s := openStore(t, embedder, memory.StoreOptions{})

	for _, text := range []string{"far", "close", "mid"} {
		if _, err := s.Insert(ctx, text, memory.SourceSeed); err != nil {
			t.Fatalf("Insert(%q): %v", text, err)
		}
	}

	// k larger than the store is clamped, not an error.
	results, err := s.Search(ctx, "query", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	// Descending similarity, best match first.
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Fatalf("similarity not monotonically non-increasing: %v then %v",
				results[i-1].Similarity, results[i].Similarity)
		}
	}
	if results[0].Fact.Text != "close" {
		t.Errorf("best match = %q, want \"close\"", results[0].Fact.Text)
	}

	// k limits the result count.
	results, err = s.Search(ctx, "query", 2)
	if err != nil {
		t.Fatalf("Search(k=2): %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestVectorStore_SearchEmptyStore(t *testing.T) {
	t.Parallel()

	s := openStore(t, &providertest.FakeEmbedder{}, memory.StoreOptions{})

	results, err := s.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search on empty store: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}

func TestVectorStore_NearDuplicateSimilarity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	embedder := &providertest.FakeEmbedder{
		Dim: 4,
		Fixed: map[string][]float32{
			"lives in Shanghai": {1, 0, 0, 0},
			"Lives in Shanghai": {1, 0, 0, 0},
			"enjoys chess":      {0, 1, 0, 0},
		},
	}
	s := openStore(t, embedder, memory.StoreOptions{})

	if _, err := s.Insert(ctx, "lives in Shanghai", memory.SourceSeed); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// A rephrasing with an identical embedding scores at the top of the
	// similarity range, which is what the caller's dedup threshold keys on.
	results, err := s.Search(ctx, "Lives in Shanghai", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Similarity < 0.99 {
		t.Fatalf("results = %+v, want one hit with similarity ~1", results)
	}

	// A distinct fact scores low.
	results, err = s.Search(ctx, "enjoys chess", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Similarity > 0.1 {
		t.Fatalf("results = %+v, want one hit with similarity ~0", results)
	}
}

func TestVectorStore_EmbeddingFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	embedder := &providertest.FakeEmbedder{
		Err: fmt.Errorf("%w: connection refused", provider.ErrEmbedding),
	}
	s := openStore(t, embedder, memory.StoreOptions{})

	if _, err := s.Insert(ctx, "anything", memory.SourceSeed); !errors.Is(err, provider.ErrEmbedding) {
		t.Fatalf("Insert err = %v, want ErrEmbedding", err)
	}
	if got := s.Count(); got != 0 {
		t.Fatalf("Count() after failed insert = %d, want 0", got)
	}
}

func TestVectorStore_PersistAndReload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	embedder := &providertest.FakeEmbedder{}

	s := openStore(t, embedder, memory.StoreOptions{Path: dir})
	if _, err := s.Insert(ctx, "the user is learning Go", memory.SourceExtracted); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := s.Insert(ctx, "the user lives in Hangzhou", memory.SourceExtracted); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	reopened := openStore(t, embedder, memory.StoreOptions{Path: dir})
	if got := reopened.Count(); got != 2 {
		t.Fatalf("Count() after reload = %d, want 2", got)
	}

	results, err := reopened.Search(ctx, "the user is learning Go", 1)
	if err != nil {
		t.Fatalf("Search after reload: %v", err)
	}
	if len(results) != 1 || results[0].Fact.Text != "the user is learning Go" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Fact.Source != memory.SourceExtracted {
		t.Errorf("Source after reload = %q, want extracted", results[0].Fact.Source)
	}
}

func TestVectorStore_SeedsLoadedOnFirstStart(t *testing.T) {
	t.Parallel()

	seedPath := filepath.Join(t.TempDir(), "memories.json")
	seedJSON := `{"memories": [
		{"fact": "Raymond studies computer science", "topic": "background"},
		{"fact": "Raymond loves Sichuan food", "topic": "food"},
		{"fact": "", "topic": "skipped"}
	]}`
	if err := os.WriteFile(seedPath, []byte(seedJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	s := openStore(t, &providertest.FakeEmbedder{}, memory.StoreOptions{SeedFile: seedPath})
	if got := s.Count(); got != 2 {
		t.Fatalf("Count() after seeding = %d, want 2", got)
	}

	results, err := s.Search(context.Background(), "Raymond studies computer science", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Fact.Source != memory.SourceSeed {
		t.Fatalf("results = %+v, want one seed-sourced hit", results)
	}
}

func TestVectorStore_MissingSeedFileIsFine(t *testing.T) {
	t.Parallel()

	s := openStore(t, &providertest.FakeEmbedder{}, memory.StoreOptions{
		SeedFile: filepath.Join(t.TempDir(), "does-not-exist.json"),
	})
	if got := s.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
}
