// Package config handles YAML configuration loading, environment variable
// expansion, and validation.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Memory    MemoryConfig    `yaml:"memory"`
	Persona   PersonaConfig   `yaml:"persona"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Log       LogConfig       `yaml:"log"`
}

// ProviderConfig selects and tunes the generation backend.
type ProviderConfig struct {
	// Name is one of "anthropic", "openai", "ollama".
	Name        string  `yaml:"name"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	// Name is one of "openai", "ollama".
	Name       string `yaml:"name"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
}

// MemoryConfig tunes the two memory tiers.
type MemoryConfig struct {
	// IndexPath is the directory holding the durable fact index.
	IndexPath string `yaml:"index_path"`

	// SeedFile is loaded on first start when the index is absent.
	SeedFile string `yaml:"seed_file"`

	// TopK facts are retrieved per turn.
	TopK int `yaml:"top_k"`

	// ShortTermWindow is the session cap in turn-pairs.
	ShortTermWindow int `yaml:"short_term_window"`

	// DedupThreshold is the near-duplicate cosine similarity cutoff.
	DedupThreshold float32 `yaml:"dedup_threshold"`

	// AsyncExtract commits facts on a background worker after the reply
	// has been returned.
	AsyncExtract bool `yaml:"async_extract"`

	// ExtractTimeout bounds one background extract+commit cycle.
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
}

// PersonaConfig points at the static character resources.
type PersonaConfig struct {
	PersonaFile string `yaml:"persona_file"`
	FewshotFile string `yaml:"fewshot_file"`
}

// GatewayConfig tunes the HTTP/WebSocket gateway.
type GatewayConfig struct {
	Bind string `yaml:"bind"`

	// AuthToken, when set, requires a matching bearer token on every
	// endpoint except /health and /metrics.
	AuthToken string `yaml:"auth_token"`
}

// LogConfig tunes logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}

// Defaults fills in zero-value fields.
func (c *Config) Defaults() {
	if c.Provider.Name == "" {
		c.Provider.Name = "anthropic"
	}
	if c.Embedding.Name == "" {
		c.Embedding.Name = "ollama"
	}
	if c.Memory.IndexPath == "" {
		c.Memory.IndexPath = "raymond_memory_index"
	}
	if c.Memory.TopK == 0 {
		c.Memory.TopK = 5
	}
	if c.Memory.ShortTermWindow == 0 {
		c.Memory.ShortTermWindow = 20
	}
	if c.Memory.DedupThreshold == 0 {
		c.Memory.DedupThreshold = 0.90
	}
	if c.Persona.PersonaFile == "" {
		c.Persona.PersonaFile = "resources/persona.json"
	}
	if c.Persona.FewshotFile == "" {
		c.Persona.FewshotFile = "resources/fewshot.json"
	}
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = "127.0.0.1:8392"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

var validProviders = map[string]bool{"anthropic": true, "openai": true, "ollama": true}
var validEmbedders = map[string]bool{"openai": true, "ollama": true}

// Validate reports structural problems in the configuration.
func (c *Config) Validate() error {
	if !validProviders[c.Provider.Name] {
		return fmt.Errorf("config: unknown provider %q (want anthropic, openai, or ollama)", c.Provider.Name)
	}
	if !validEmbedders[c.Embedding.Name] {
		return fmt.Errorf("config: unknown embedding backend %q (want openai or ollama)", c.Embedding.Name)
	}
	if c.Memory.TopK < 1 {
		return fmt.Errorf("config: memory.top_k must be positive, got %d", c.Memory.TopK)
	}
	if c.Memory.ShortTermWindow < 1 {
		return fmt.Errorf("config: memory.short_term_window must be positive, got %d", c.Memory.ShortTermWindow)
	}
	if c.Memory.DedupThreshold <= 0 || c.Memory.DedupThreshold > 1 {
		return fmt.Errorf("config: memory.dedup_threshold must be in (0, 1], got %v", c.Memory.DedupThreshold)
	}
	return nil
}
