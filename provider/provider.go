package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/mosaicworks/querydesk/config"
	openai_provider "github.com/mosaicworks/querydesk/provider/openai"
)

// Provider is the interface every LLM backend must satisfy. Generate runs a
// single-prompt completion; CreateEmbedding turns texts into semantic vectors
// for the retrieval pipeline.
type Provider interface {
	Generate(ctx context.Context, prompt string, model string) (string, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates a new LLM client based on the provided configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key not configured (set OPENAI_API_KEY)")
		}
		return openai_provider.NewClient(
			cfg.APIKey,
			cfg.BaseURL,
			cfg.EmbeddingModel,
			cfg.Temperature,
			cfg.MaxTokens,
			cfg.Timeout,
		), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}
