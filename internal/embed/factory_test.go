package embed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesearch/internal/config"
)

func TestNewEmbedder_StaticProvider_AlwaysSucceeds(t *testing.T) {
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.EmbedProvider = "static"

	embedder, err := NewEmbedder(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, "static768", embedder.ModelName())
	assert.True(t, embedder.Available(ctx))
}

func TestNewEmbedder_OllamaProvider_UnavailableHostReturnsError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.Defaults()
	cfg.EmbedProvider = "ollama"
	cfg.OllamaHost = "http://localhost:59999"

	embedder, err := NewEmbedder(ctx, cfg)

	require.Error(t, err, "ollama provider should error when unreachable, not fall back silently")
	assert.Nil(t, embedder)
	assert.Contains(t, err.Error(), "ollama unavailable")
	assert.Contains(t, err.Error(), "ollama serve")
}

func TestNewEmbedder_UnknownProvider_DefaultsToOllamaBehavior(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.Defaults()
	cfg.EmbedProvider = "something-unrecognized"
	cfg.OllamaHost = "http://localhost:59999"

	_, err := NewEmbedder(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama unavailable")
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ProviderType
	}{
		{"static lowercase", "static", ProviderStatic},
		{"static uppercase", "STATIC", ProviderStatic},
		{"ollama explicit", "ollama", ProviderOllama},
		{"empty defaults to ollama", "", ProviderOllama},
		{"unrecognized defaults to ollama", "bogus", ProviderOllama},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseProvider(tt.input))
		})
	}
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider("ollama"))
	assert.True(t, IsValidProvider("static"))
	assert.True(t, IsValidProvider("STATIC"))
	assert.False(t, IsValidProvider("mlx"))
	assert.False(t, IsValidProvider("bogus"))
}

func TestValidProviders_ListsOllamaAndStatic(t *testing.T) {
	assert.ElementsMatch(t, []string{"ollama", "static"}, ValidProviders())
}

func TestGetInfo_StaticEmbedder(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	info := GetInfo(context.Background(), embedder)
	assert.Equal(t, ProviderStatic, info.Provider)
	assert.Equal(t, "static768", info.Model)
	assert.Equal(t, 768, info.Dimensions)
	assert.True(t, info.Available)
}

func TestGetInfo_UnwrapsCachedEmbedder(t *testing.T) {
	inner := NewStaticEmbedder768()
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()

	info := GetInfo(context.Background(), cached)
	assert.Equal(t, ProviderStatic, info.Provider)
}

func TestMustNewEmbedder_PanicsOnFailure(t *testing.T) {
	cfg := config.Defaults()
	cfg.EmbedProvider = "ollama"
	cfg.OllamaHost = "http://localhost:59999"

	assert.Panics(t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		MustNewEmbedder(ctx, cfg)
	})
}

func TestMustNewEmbedder_ReturnsEmbedderOnSuccess(t *testing.T) {
	cfg := config.Defaults()
	cfg.EmbedProvider = "static"

	embedder := MustNewEmbedder(context.Background(), cfg)
	defer func() { _ = embedder.Close() }()
	assert.Equal(t, "static768", embedder.ModelName())
}

func TestNewReranker_EmptyEndpoint_ReturnsNullReranker(t *testing.T) {
	cfg := config.Defaults()
	cfg.RerankEndpoint = ""

	reranker := NewReranker(cfg)
	_, ok := reranker.(NullReranker)
	assert.True(t, ok, "empty RerankEndpoint should yield a NullReranker")
	assert.False(t, reranker.Available(context.Background()))
}

func TestNewReranker_WithEndpoint_ReturnsHTTPReranker(t *testing.T) {
	cfg := config.Defaults()
	cfg.RerankEndpoint = "http://localhost:9876/rerank"

	reranker := NewReranker(cfg)
	_, ok := reranker.(*HTTPReranker)
	assert.True(t, ok, "a configured RerankEndpoint should yield an HTTPReranker")
}
