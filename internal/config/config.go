// Package config loads the server's process-wide settings from the
// environment. There is no layered file-based config here on purpose:
// per-store overrides (chunk size/overlap) live in each store's own
// meta.yaml, handled by internal/storemgr, not here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-driven setting the server reads once at
// startup.
type Config struct {
	// DataRoot is the base directory for all persistent state.
	DataRoot string

	// MaxFileSizeMB is loaded from MAX_FILE_SIZE_MB. The indexing pipeline
	// does not read it: it skips files over its own fixed
	// pipeline.MaxFileSize (5 MiB) instead.
	MaxFileSizeMB int

	// MaxFileCount is the upper bound on files in one admit call.
	MaxFileCount int

	// EmbedBatchSize is the max texts per embedder call.
	EmbedBatchSize int

	// RerankBatchSize is the max query-doc pairs per reranker call.
	RerankBatchSize int

	// EmbedQueueMax is the backpressure threshold for chunks queued per
	// store.
	EmbedQueueMax int

	// EmbedWorkers is the worker count per store.
	EmbedWorkers int

	// ModelEmbedDim is the expected embedding dimensionality, asserted at
	// startup against the configured embedder.
	ModelEmbedDim int

	// VectorDBURL and VectorDBAPIKey configure an external vector store,
	// when the in-process HNSW collection is not used.
	VectorDBURL    string
	VectorDBAPIKey string

	// EmbedProvider selects the dense embedding backend: "ollama" or
	// "static" (hash-based, no network collaborator).
	EmbedProvider string

	// OllamaHost and OllamaModel configure the Ollama embedding backend.
	OllamaHost  string
	OllamaModel string

	// RerankEndpoint is the URL of an external reranking service. Empty
	// disables reranking (NullReranker, rerank_applied stays false).
	RerankEndpoint string

	// LogLevel and LogFormat control internal/logging.
	LogLevel  string
	LogFormat string

	// ListenAddr is the TCP address the streaming session protocol binds
	// to (serve entrypoint only).
	ListenAddr string

	// AdminAddr is the TCP address the HTTP admin endpoint binds to.
	// Empty disables the admin server.
	AdminAddr string

	// StoreName is the store the serve entrypoint's listener is bound
	// to; every connection it accepts belongs to this one store.
	StoreName string

	// WatchDir, if set, is continuously ingested into StoreName via
	// internal/watcher for as long as the server runs.
	WatchDir string

	// ContextualEnabled turns on contextual retrieval: an LLM- or
	// pattern-derived description prepended to each chunk before it is
	// embedded. See internal/contextgen.
	ContextualEnabled bool

	// ContextualCodeChunks, when false, skips contextual enrichment for
	// code chunks (markdown chunks are still enriched).
	ContextualCodeChunks bool

	// ContextModel is the Ollama model used for contextual retrieval,
	// independent of OllamaModel (the dense embedding model).
	ContextModel string
}

// Defaults are conservative starting points for a single-node deployment;
// every field can be overridden via its environment variable in Load.
func Defaults() Config {
	return Config{
		DataRoot:             defaultDataRoot(),
		MaxFileSizeMB:        10,
		MaxFileCount:         10_000,
		EmbedBatchSize:       32,
		RerankBatchSize:      16,
		EmbedQueueMax:        10_000,
		EmbedWorkers:         1,
		ModelEmbedDim:        768,
		EmbedProvider:        "ollama",
		OllamaHost:           "http://localhost:11434",
		OllamaModel:          "qwen3-embedding:0.6b",
		LogLevel:             "info",
		LogFormat:            "json",
		ListenAddr:           ":7330",
		AdminAddr:            ":7331",
		StoreName:            "default",
		ContextualCodeChunks: true,
		ContextModel:         "qwen3:0.6b",
	}
}

// Load builds a Config starting from Defaults() and overlaying every
// environment variable that is set.
func Load() (Config, error) {
	cfg := Defaults()

	if v, ok := os.LookupEnv("DATA_ROOT"); ok && v != "" {
		cfg.DataRoot = v
	}
	if err := overlayInt(&cfg.MaxFileSizeMB, "MAX_FILE_SIZE_MB"); err != nil {
		return cfg, err
	}
	if err := overlayInt(&cfg.MaxFileCount, "MAX_FILE_COUNT"); err != nil {
		return cfg, err
	}
	if err := overlayInt(&cfg.EmbedBatchSize, "EMBED_BATCH_SIZE"); err != nil {
		return cfg, err
	}
	if err := overlayInt(&cfg.RerankBatchSize, "RERANK_BATCH_SIZE"); err != nil {
		return cfg, err
	}
	if err := overlayInt(&cfg.EmbedQueueMax, "EMBED_QUEUE_MAX"); err != nil {
		return cfg, err
	}
	if err := overlayInt(&cfg.EmbedWorkers, "EMBED_WORKERS"); err != nil {
		return cfg, err
	}
	if err := overlayInt(&cfg.ModelEmbedDim, "MODEL_EMBED_DIM"); err != nil {
		return cfg, err
	}
	if v, ok := os.LookupEnv("VECTOR_DB_URL"); ok {
		cfg.VectorDBURL = v
	}
	if v, ok := os.LookupEnv("VECTOR_DB_API_KEY"); ok {
		cfg.VectorDBAPIKey = v
	}
	if v, ok := os.LookupEnv("EMBED_PROVIDER"); ok && v != "" {
		cfg.EmbedProvider = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("OLLAMA_HOST"); ok && v != "" {
		cfg.OllamaHost = v
	}
	if v, ok := os.LookupEnv("OLLAMA_MODEL"); ok && v != "" {
		cfg.OllamaModel = v
	}
	if v, ok := os.LookupEnv("RERANK_ENDPOINT"); ok {
		cfg.RerankEndpoint = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok && v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("ADMIN_ADDR"); ok {
		cfg.AdminAddr = v
	}
	if v, ok := os.LookupEnv("STORE_NAME"); ok && v != "" {
		cfg.StoreName = v
	}
	if v, ok := os.LookupEnv("WATCH_DIR"); ok {
		cfg.WatchDir = v
	}
	if err := overlayBool(&cfg.ContextualEnabled, "CONTEXTUAL_ENABLED"); err != nil {
		return cfg, err
	}
	if err := overlayBool(&cfg.ContextualCodeChunks, "CONTEXTUAL_CODE_CHUNKS"); err != nil {
		return cfg, err
	}
	if v, ok := os.LookupEnv("CONTEXT_MODEL"); ok && v != "" {
		cfg.ContextModel = v
	}

	return cfg, nil
}

func overlayInt(dst *int, envVar string) error {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", envVar, v, err)
	}
	*dst = n
	return nil
}

func overlayBool(dst *bool, envVar string) error {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", envVar, v, err)
	}
	*dst = b
	return nil
}

func defaultDataRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codesearch"
	}
	return home + "/.codesearch"
}
