// Package agent drives the per-turn pipeline: retrieve relevant facts,
// generate the persona's reply, then extract and commit new facts.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/raymondbot/raymond/internal/memory"
	"github.com/raymondbot/raymond/internal/persona"
	"github.com/raymondbot/raymond/internal/prompt"
	"github.com/raymondbot/raymond/internal/provider"
)

var tracer = otel.Tracer("raymond/agent")

// stage is the orchestrator's position in the per-turn pipeline. The
// topology never branches, so it is a plain sequence rather than a graph.
type stage int

const (
	stageIdle stage = iota
	stageRetrieving
	stageGenerating
	stageExtracting
)

// Config tunes the orchestrator.
type Config struct {
	// TopK is the number of facts retrieved per turn.
	TopK int

	// DedupThreshold is the cosine similarity above which a candidate
	// fact is discarded as a near-duplicate of an existing one. Needs
	// empirical tuning per embedding model.
	DedupThreshold float32

	// AsyncExtract runs extraction and commit on a background worker
	// after the reply has been returned.
	AsyncExtract bool

	// ExtractTimeout bounds one background extract+commit cycle.
	ExtractTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.DedupThreshold == 0 {
		c.DedupThreshold = 0.90
	}
	if c.ExtractTimeout == 0 {
		c.ExtractTimeout = 30 * time.Second
	}
	return c
}

// exchange is one completed user/agent pair handed to extraction.
type exchange struct {
	user  string
	agent string
}

// Agent is the turn orchestrator. One Agent serves one active
// conversation; it owns the session History exclusively and turns are
// processed strictly sequentially.
type Agent struct {
	provider     provider.Provider
	store        memory.Store
	extractor    *memory.Extractor
	history      *memory.History
	systemPrompt string
	exemplars    []persona.Exemplar
	logger       *slog.Logger
	cfg          Config

	mu    sync.Mutex // serializes turns
	stage stage

	commitCh chan exchange
	wg       sync.WaitGroup
	once     sync.Once
}

// New wires an Agent. The persona resources are rendered once here and
// shared read-only by every turn. When cfg.AsyncExtract is set, a single
// commit worker owning the store's write path is started; stop it with
// Close.
func New(p provider.Provider, store memory.Store, history *memory.History, pers *persona.Persona, exemplars []persona.Exemplar, logger *slog.Logger, cfg Config) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		provider:     p,
		store:        store,
		extractor:    memory.NewExtractor(p),
		history:      history,
		systemPrompt: pers.BuildSystemPrompt(),
		exemplars:    exemplars,
		logger:       logger,
		cfg:          cfg.withDefaults(),
	}

	if a.cfg.AsyncExtract {
		a.commitCh = make(chan exchange, 16)
		a.wg.Add(1)
		go a.commitWorker()
	}

	return a
}

// HandleTurn runs the full pipeline for one user input and returns the
// agent's reply. Only a generation failure on the primary response is
// surfaced; every other failure degrades silently to reduced
// functionality for this turn.
func (a *Agent) HandleTurn(ctx context.Context, input string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	defer func() { a.stage = stageIdle }()

	ctx, span := tracer.Start(ctx, "agent.turn")
	defer span.End()

	start := time.Now()

	a.stage = stageRetrieving
	facts := a.retrieve(ctx, input)

	a.stage = stageGenerating
	reply, err := a.generate(ctx, facts, input)
	if err != nil {
		turnErrors.Inc()
		return "", err
	}

	// A cancellation racing the response must not record the turn or run
	// extraction; the caller sees the cancellation, not the reply.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.history.Append(memory.NewTurn(provider.MessageRoleUser, input))
	a.history.Append(memory.NewTurn(provider.MessageRoleAssistant, reply))

	a.stage = stageExtracting
	ex := exchange{user: input, agent: reply}
	if a.cfg.AsyncExtract {
		select {
		case a.commitCh <- ex:
		default:
			a.logger.Warn("commit queue full, dropping extraction for this turn")
		}
	} else {
		a.extractAndCommit(ctx, ex)
	}

	turnsTotal.Inc()
	turnDuration.Observe(time.Since(start).Seconds())
	return reply, nil
}

// retrieve is the first stage. Retrieval is an enhancement, not a
// prerequisite: any failure degrades to an empty result.
func (a *Agent) retrieve(ctx context.Context, input string) []memory.SearchResult {
	ctx, span := tracer.Start(ctx, "agent.retrieve")
	defer span.End()

	facts, err := a.store.Search(ctx, input, a.cfg.TopK)
	if err != nil {
		a.logger.Warn("memory retrieval failed, continuing without context", "error", err)
		return nil
	}
	return facts
}

// generate is the second stage. A failure here is fatal to the turn and
// leaves the session history untouched so a retry sees a clean state.
func (a *Agent) generate(ctx context.Context, facts []memory.SearchResult, input string) (string, error) {
	ctx, span := tracer.Start(ctx, "agent.generate")
	defer span.End()

	messages := prompt.Assemble(prompt.Input{
		SystemPrompt: a.systemPrompt,
		Exemplars:    a.exemplars,
		Facts:        facts,
		History:      a.history.Turns(),
		UserInput:    input,
	})

	reply, err := a.provider.Generate(ctx, messages, provider.ModeRespond)
	if err != nil {
		return "", fmt.Errorf("agent: generating response: %w", err)
	}
	return reply, nil
}

// extractAndCommit is the best-effort tail of a turn: derive candidate
// facts from the completed exchange and commit the novel ones. Nothing in
// here may fail the turn that already returned.
func (a *Agent) extractAndCommit(ctx context.Context, ex exchange) {
	ctx, span := tracer.Start(ctx, "agent.extract")
	defer span.End()

	facts, err := a.extractor.Extract(ctx, ex.user, ex.agent)
	if err != nil {
		a.logger.Warn("memory extraction skipped", "error", err)
		return
	}

	committed := 0
	for _, text := range facts {
		if a.commitFact(ctx, text) {
			committed++
		}
	}
	if committed > 0 {
		factsCommitted.Add(float64(committed))
		a.logger.Info("committed new memories", "count", committed, "total", a.store.Count())
	}
}

// commitFact applies the near-duplicate threshold check, then inserts.
// This is a similarity heuristic: differently phrased duplicates may slip
// through and distinct-but-close facts may be rejected.
func (a *Agent) commitFact(ctx context.Context, text string) bool {
	nearest, err := a.store.Search(ctx, text, 1)
	if err != nil {
		a.logger.Warn("dedup check failed, skipping fact", "error", err)
		return false
	}
	if len(nearest) > 0 && nearest[0].Similarity >= a.cfg.DedupThreshold {
		a.logger.Debug("discarding near-duplicate fact",
			"fact", text,
			"existing", nearest[0].Fact.Text,
			"similarity", nearest[0].Similarity,
		)
		return false
	}

	if _, err := a.store.Insert(ctx, text, memory.SourceExtracted); err != nil {
		a.logger.Warn("failed to commit fact", "fact", text, "error", err)
		return false
	}
	return true
}

// commitWorker drains the commit queue. It is the only goroutine touching
// the store's write path in async mode, so a concurrent retrieval sees
// either the pre- or post-commit state, never a torn one.
func (a *Agent) commitWorker() {
	defer a.wg.Done()
	for ex := range a.commitCh {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ExtractTimeout)
		a.extractAndCommit(ctx, ex)
		cancel()
	}
}

// ClearShortTerm empties the session window; long-term memory is kept.
func (a *Agent) ClearShortTerm() {
	a.history.Clear()
}

// MemoryCount returns the number of stored long-term facts.
func (a *Agent) MemoryCount() int {
	return a.store.Count()
}

// SearchMemory runs a read-only similarity search for user-facing
// inspection commands.
func (a *Agent) SearchMemory(ctx context.Context, keyword string, k int) ([]memory.SearchResult, error) {
	if k <= 0 {
		k = a.cfg.TopK
	}
	return a.store.Search(ctx, keyword, k)
}

// Close flushes and stops the background commit worker, if any. Safe to
// call multiple times.
func (a *Agent) Close() {
	a.once.Do(func() {
		if a.commitCh != nil {
			close(a.commitCh)
		}
	})
	a.wg.Wait()
}
