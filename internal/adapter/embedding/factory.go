package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"docrag/config"
	"docrag/internal/port"
)

// New builds the embedder selected by cfg.Embedding.Provider.
func New(cfg *config.Config, logger *zap.Logger) (port.Embedder, error) {
	ec := cfg.Embedding
	opts := OpenAIOptions{
		Model:          ec.Model,
		BaseURL:        ec.BaseURL,
		Dimension:      ec.Dimension,
		BatchSize:      ec.BatchSize,
		Timeout:        cfg.EmbeddingTimeout(),
		RequestsPerSec: ec.RequestsPerSec,
		MaxRetries:     ec.MaxRetries,
		Logger:         logger,
	}

	switch ec.Provider {
	case "", "hashing":
		return NewHashingEmbedder(ec.Dimension, ec.Stemming), nil
	case "openai":
		return NewOpenAICompatibleEmbedder(ec.APIKeyEnv, withBaseURL(opts, OpenAIBaseURL))
	case "deepseek":
		return NewOpenAICompatibleEmbedder(ec.APIKeyEnv, withBaseURL(opts, DeepSeekBaseURL))
	case "jina":
		return NewOpenAICompatibleEmbedder(ec.APIKeyEnv, withBaseURL(opts, JinaBaseURL))
	case "ollama":
		opts = withBaseURL(opts, OllamaBaseURL)
		opts.APIKey = "ollama"
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", ec.Provider)
	}
}

func withBaseURL(opts OpenAIOptions, fallback string) OpenAIOptions {
	if opts.BaseURL == "" {
		opts.BaseURL = fallback
	}
	return opts
}
