package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raymondbot/raymond/internal/agent"
	"github.com/raymondbot/raymond/internal/config"
	"github.com/raymondbot/raymond/internal/memory"
	"github.com/raymondbot/raymond/internal/persona"
	"github.com/raymondbot/raymond/internal/provider"
	"github.com/raymondbot/raymond/internal/provider/anthropic"
	"github.com/raymondbot/raymond/internal/provider/ollama"
	"github.com/raymondbot/raymond/internal/provider/openai"
)

// buildAgent wires the full pipeline from configuration: embedding and
// generation backends, the durable fact store, the persona resources, and
// the orchestrator.
func buildAgent(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*agent.Agent, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	prov, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	store, err := memory.Open(ctx, embedder, memory.StoreOptions{
		Path:     cfg.Memory.IndexPath,
		SeedFile: cfg.Memory.SeedFile,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening memory store: %w", err)
	}

	pers, err := persona.Load(cfg.Persona.PersonaFile)
	if err != nil {
		return nil, err
	}
	exemplars, err := persona.LoadExemplars(cfg.Persona.FewshotFile)
	if err != nil {
		return nil, err
	}

	history := memory.NewHistory(cfg.Memory.ShortTermWindow)

	return agent.New(prov, store, history, pers, exemplars, logger, agent.Config{
		TopK:           cfg.Memory.TopK,
		DedupThreshold: cfg.Memory.DedupThreshold,
		AsyncExtract:   cfg.Memory.AsyncExtract,
		ExtractTimeout: cfg.Memory.ExtractTimeout,
	}), nil
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	p := cfg.Provider
	switch p.Name {
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:      p.APIKey,
			Model:       p.Model,
			BaseURL:     p.BaseURL,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		}), nil
	case "openai":
		return openai.New(openai.Config{
			APIKey:      p.APIKey,
			Model:       p.Model,
			BaseURL:     p.BaseURL,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
	case "ollama":
		return ollama.New(ollama.Config{
			Model:       p.Model,
			BaseURL:     p.BaseURL,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Name)
	}
}

func buildEmbedder(cfg *config.Config) (provider.Embedder, error) {
	e := cfg.Embedding
	switch e.Name {
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     e.APIKey,
			Model:      e.Model,
			BaseURL:    e.BaseURL,
			Dimensions: e.Dimensions,
		})
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			Model:      e.Model,
			BaseURL:    e.BaseURL,
			Dimensions: e.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", e.Name)
	}
}
