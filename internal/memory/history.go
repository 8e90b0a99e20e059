package memory

import (
	"sync"
	"time"

	"github.com/raymondbot/raymond/internal/provider"
)

// Turn is one message in the short-term conversation window.
type Turn struct {
	Role      provider.MessageRole `json:"role"`
	Content   string               `json:"content"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewTurn builds a Turn stamped with the current time.
func NewTurn(role provider.MessageRole, content string) Turn {
	return Turn{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// History is the bounded short-term session state. The window is measured
// in turn-pairs (user + agent); once the cap is exceeded the oldest pair is
// evicted. Eviction is destructive — evicted turns are gone, only facts
// explicitly extracted into the Store survive.
type History struct {
	mu     sync.Mutex
	window int
	turns  []Turn
}

// NewHistory creates a History capped at window turn-pairs.
func NewHistory(window int) *History {
	if window < 1 {
		window = 1
	}
	return &History{window: window}
}

// Append adds a turn, evicting the oldest pair when the window overflows.
func (h *History) Append(turn Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turn)
	for len(h.turns) > 2*h.window {
		h.turns = h.turns[2:]
	}
}

// Turns returns a copy of the current window, oldest first.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of stored turns (not pairs).
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear empties the window. The long-term store is untouched.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
