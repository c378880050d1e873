package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/codesearch/internal/config"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses Ollama's HTTP API for embeddings.
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings (no network collaborator,
	// used in tests and when no embedder is configured).
	ProviderStatic ProviderType = "static"
)

// NewEmbedder builds the configured embedding backend, wrapped in a cache.
// cfg.EmbedProvider selects the backend; "ollama" returns an error if the
// server cannot be reached, "static" never fails.
func NewEmbedder(ctx context.Context, cfg config.Config) (Embedder, error) {
	var embedder Embedder
	var err error

	switch ParseProvider(cfg.EmbedProvider) {
	case ProviderStatic:
		embedder = NewStaticEmbedder768()

	default:
		embedder, err = newOllamaEmbedder(ctx, cfg)
	}

	if err != nil {
		return nil, err
	}

	return NewCachedEmbedderWithDefaults(embedder), nil
}

func newOllamaEmbedder(ctx context.Context, cfg config.Config) (Embedder, error) {
	oCfg := DefaultOllamaConfig()
	if cfg.OllamaHost != "" {
		oCfg.Host = cfg.OllamaHost
	}
	if cfg.OllamaModel != "" {
		oCfg.Model = cfg.OllamaModel
	}
	if cfg.EmbedBatchSize > 0 {
		oCfg.BatchSize = cfg.EmbedBatchSize
	}

	embedder, err := NewOllamaEmbedder(ctx, oCfg)
	if err != nil {
		return nil, fmt.Errorf("ollama unavailable: %w\n\nTo fix:\n  1. Start Ollama: ollama serve\n  2. Or set EMBED_PROVIDER=static for BM25-only search", err)
	}
	return embedder, nil
}

// NewReranker builds the configured reranker. An empty RerankEndpoint
// yields a NullReranker, which always reports itself unavailable so
// callers degrade to the fused score.
func NewReranker(cfg config.Config) Reranker {
	if cfg.RerankEndpoint == "" {
		return NullReranker{}
	}
	return NewHTTPReranker(cfg.RerankEndpoint)
}

// ParseProvider converts a string to ProviderType, defaulting to Ollama.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return ProviderStatic
	case "ollama", "":
		return ProviderOllama
	default:
		return ProviderOllama
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{string(ProviderOllama), string(ProviderStatic)}
}

// IsValidProvider checks if a provider name is valid
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo contains information about an embedder
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo returns information about an embedder
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}

	return info
}

// MustNewEmbedder creates an embedder and panics on failure.
// Use only in tests or initialization code where failure is fatal.
func MustNewEmbedder(ctx context.Context, cfg config.Config) Embedder {
	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedder: %v", err))
	}
	return embedder
}
