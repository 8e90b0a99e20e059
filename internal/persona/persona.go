// Package persona loads the static character resources: the persona
// description with its speaking-style rules, and the ordered few-shot
// exemplar pairs. Both are read once at startup and never mutated.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Persona describes the simulated character.
type Persona struct {
	// SystemPrompt is the base character description.
	SystemPrompt string `json:"system_prompt"`

	// SpeakingStyle holds the style guidance appended to the prompt.
	SpeakingStyle SpeakingStyle `json:"speaking_style"`

	// Rules are hard behavioural rules appended verbatim after the style
	// section.
	Rules []string `json:"rules"`
}

// SpeakingStyle captures how the character talks.
type SpeakingStyle struct {
	Catchphrases   []string          `json:"catchphrases"`
	SentenceHabits []string          `json:"sentence_habits"`
	ReplyLength    map[string]string `json:"reply_length"`
}

// Exemplar is one fixed few-shot input/output pair. Exemplars steer
// generation style; they are static authoring-order content, never
// similarity-ranked.
type Exemplar struct {
	User  string
	Agent string
}

// Load reads the persona file.
func Load(path string) (*Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: reading %s: %w", path, err)
	}
	var p Persona
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("persona: parsing %s: %w", path, err)
	}
	if p.SystemPrompt == "" {
		return nil, fmt.Errorf("persona: %s: system_prompt must not be empty", path)
	}
	return &p, nil
}

// fewshotFile mirrors the authoring format: a list of example
// conversations, each an alternating human/assistant turn list.
type fewshotFile struct {
	Examples []struct {
		Conversation []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"conversation"`
	} `json:"examples"`
}

// LoadExemplars reads the few-shot file and flattens it into ordered
// user/agent pairs, preserving authoring order.
func LoadExemplars(path string) ([]Exemplar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: reading %s: %w", path, err)
	}
	var f fewshotFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("persona: parsing %s: %w", path, err)
	}

	var out []Exemplar
	for _, ex := range f.Examples {
		var pending string
		var havePending bool
		for _, turn := range ex.Conversation {
			switch turn.Role {
			case "human", "user":
				pending = turn.Content
				havePending = true
			case "assistant", "agent":
				if havePending {
					out = append(out, Exemplar{User: pending, Agent: turn.Content})
					havePending = false
				}
			}
		}
	}
	return out, nil
}

// BuildSystemPrompt renders the persona into the system prompt text:
// base description, then catchphrases, sentence habits, reply-length
// guidance, then the hard rules.
func (p *Persona) BuildSystemPrompt() string {
	var b strings.Builder
	b.WriteString(p.SystemPrompt)

	if len(p.SpeakingStyle.Catchphrases) > 0 {
		b.WriteString("\n\nYour catchphrases include:\n")
		for _, cp := range p.SpeakingStyle.Catchphrases {
			b.WriteString("- ")
			b.WriteString(cp)
			b.WriteString("\n")
		}
	}

	if len(p.SpeakingStyle.SentenceHabits) > 0 {
		b.WriteString("\nYour sentence habits:\n")
		for _, h := range p.SpeakingStyle.SentenceHabits {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
	}

	if len(p.SpeakingStyle.ReplyLength) > 0 {
		b.WriteString("\nReply length:\n")
		for _, k := range sortedKeys(p.SpeakingStyle.ReplyLength) {
			b.WriteString("- ")
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(p.SpeakingStyle.ReplyLength[k])
			b.WriteString("\n")
		}
	}

	if len(p.Rules) > 0 {
		b.WriteString("\nImportant rules:\n")
		for _, r := range p.Rules {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// sortedKeys keeps prompt rendering deterministic across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
