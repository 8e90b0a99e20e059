// Package prompt renders the per-turn generation request. Assembly is a
// pure function with a fixed, load-bearing message order: system block,
// few-shot exemplars, short-term history, current input.
package prompt

import (
	"strings"

	"github.com/raymondbot/raymond/internal/memory"
	"github.com/raymondbot/raymond/internal/persona"
	"github.com/raymondbot/raymond/internal/provider"
)

// memorySectionHeader marks the retrieved-facts block inside the system
// message. The framing tells the model to treat facts as its own
// recollections rather than quoting them every turn.
const memorySectionHeader = "[Your memory - fragments from your mind related to the current topic. Don't force them into the conversation; bring one up only when it fits naturally.]"

// Input bundles everything Assemble needs for one turn.
type Input struct {
	// SystemPrompt is the pre-built persona prompt (persona description
	// plus speaking-style rules).
	SystemPrompt string

	// Exemplars are the fixed few-shot pairs, in authoring order.
	Exemplars []persona.Exemplar

	// Facts are this turn's retrieved memories, best match first. May be
	// empty; an empty retrieval produces no memory block at all.
	Facts []memory.SearchResult

	// History is the short-term window, oldest turn first.
	History []memory.Turn

	// UserInput is the current user message.
	UserInput string
}

// Assemble builds the ordered message sequence for a respond-mode
// generation call. It has no side effects and no state; truncation is not
// its concern — an oversized sequence is the generation capability's
// failure to report.
func Assemble(in Input) []provider.Message {
	messages := make([]provider.Message, 0, 2+2*len(in.Exemplars)+len(in.History))

	messages = append(messages, provider.SystemMessage(systemBlock(in.SystemPrompt, in.Facts)))

	for _, ex := range in.Exemplars {
		messages = append(messages,
			provider.UserMessage(ex.User),
			provider.AssistantMessage(ex.Agent),
		)
	}

	for _, turn := range in.History {
		messages = append(messages, provider.Message{Role: turn.Role, Content: turn.Content})
	}

	return append(messages, provider.UserMessage(in.UserInput))
}

// systemBlock joins the persona prompt with the retrieved-facts context
// block. No facts, no block — not an empty one.
func systemBlock(systemPrompt string, facts []memory.SearchResult) string {
	if len(facts) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(memorySectionHeader)
	b.WriteString("\n")
	for _, f := range facts {
		b.WriteString("- ")
		b.WriteString(f.Fact.Text)
		b.WriteString("\n")
	}
	return b.String()
}
