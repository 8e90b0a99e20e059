package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/raymondbot/raymond/internal/provider"
)

// extractionInstruction frames the second LLM call of a turn. The model
// sees only the just-completed exchange and must answer with a bare JSON
// array of fact strings ([] when nothing is worth keeping).
const extractionInstruction = `You are a memory extractor. Analyze the exchange below and decide whether the user mentioned new facts worth remembering long-term (personal details, preferences, important plans, major events, hobbies).

Rules:
- Only extract concrete, information-bearing facts, never vague moods or greetings.
- "the user is in a bad mood today" is too vague to keep.
- "the user is studying for graduate school entrance exams" or "the user has a cat named Xiaobai" is worth keeping.

If there are facts, output a JSON array of strings, one fact per element.
If there is no new information worth remembering, output an empty array: []

Output only the JSON array, nothing else.`

// minFactLength is the shortest fact (in runes) worth storing; anything
// shorter is noise like "ok" or "yes".
const minFactLength = 6

// Extractor derives candidate fact statements from a completed exchange
// using the generation capability in extract mode.
type Extractor struct {
	provider provider.Provider
}

// NewExtractor creates an Extractor backed by p.
func NewExtractor(p provider.Provider) *Extractor {
	return &Extractor{provider: p}
}

// Extract runs the extraction call for one exchange and returns candidate
// fact strings. Generation errors are returned as-is; unparseable output
// returns an error wrapping ErrExtractionParse. Callers treat both as
// zero facts.
func (e *Extractor) Extract(ctx context.Context, userText, agentText string) ([]string, error) {
	messages := []provider.Message{
		provider.SystemMessage(extractionInstruction),
		provider.UserMessage(fmt.Sprintf("User: %s\nAgent: %s", userText, agentText)),
	}

	out, err := e.provider.Generate(ctx, messages, provider.ModeExtract)
	if err != nil {
		return nil, err
	}
	return ParseFacts(out)
}

// ParseFacts parses extraction output into fact strings. The output is
// expected to be a JSON string array, possibly wrapped in a markdown code
// fence. Facts below minFactLength runes are dropped.
func ParseFacts(raw string) ([]string, error) {
	content := stripCodeFence(strings.TrimSpace(raw))
	if content == "" {
		return nil, fmt.Errorf("%w: empty output", ErrExtractionParse)
	}

	var facts []string
	if err := json.Unmarshal([]byte(content), &facts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	out := facts[:0]
	for _, f := range facts {
		f = strings.TrimSpace(f)
		if utf8.RuneCountInString(f) >= minFactLength {
			out = append(out, f)
		}
	}
	return out, nil
}

// stripCodeFence unwraps ```json ... ``` style fences some models insist
// on emitting around the array.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
