// Package contextgen implements contextual retrieval: generating a short
// description that situates a chunk within its parent document before the
// chunk is embedded, the technique described in Anthropic's "Contextual
// Retrieval" research. Generated text is prepended to the chunk's content
// for embedding and kept verbatim in the chunk's Context field for
// inspection; the BM25 document and the original chunk.Chunk.RawContent
// are left untouched.
package contextgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/codesearch/internal/chunk"
)

// Generator produces a 1-2 sentence context description for a chunk.
type Generator interface {
	// GenerateContext describes chunk within docContext, the parent
	// document's own context (imports, headers, ...).
	GenerateContext(ctx context.Context, c *chunk.Chunk, docContext string) (string, error)

	// GenerateBatch describes every chunk in chunks, all drawn from the
	// same file, so implementations can amortize setup (e.g. prompt
	// caching) across the batch.
	GenerateBatch(ctx context.Context, chunks []*chunk.Chunk, docContext string) ([]string, error)

	// Available reports whether the generator's backing model can be
	// reached right now.
	Available(ctx context.Context) bool

	// ModelName identifies the model or strategy in use.
	ModelName() string

	Close() error
}

// Config controls how the generator built by New behaves.
type Config struct {
	// Enabled turns contextual retrieval on. New does not read it: callers
	// check it and skip building a generator entirely when it is false.
	Enabled bool

	// CodeChunks, when false, skips context generation for code chunks
	// (markdown chunks are still enriched); embedding raw code without a
	// prefix sometimes retrieves better than a paraphrased summary of it.
	CodeChunks bool

	// OllamaHost and Model configure the LLM backend. A small, fast
	// model is preferred here since this runs once per chunk at index
	// time.
	OllamaHost string
	Model      string
}

// DefaultConfig returns contextual retrieval disabled, with LLM backend
// settings ready to go the moment a caller flips Enabled on.
func DefaultConfig() Config {
	return Config{
		OllamaHost: "http://localhost:11434",
		Model:      "qwen3:0.6b",
		CodeChunks: true,
	}
}

// New builds the hybrid generator used when contextual retrieval is
// enabled: LLM-backed, falling back to pattern-based
// generation when the model is unavailable.
func New(cfg Config) *HybridGenerator {
	llm := newLLMGenerator(cfg)
	return newHybridGenerator(llm, cfg)
}

// Enrich prepends generatedContext to c's content for embedding, leaving
// c.RawContent (the original, unprefixed text) untouched. A blank
// generatedContext is a no-op.
func Enrich(c *chunk.Chunk, generatedContext string) {
	if c == nil || generatedContext == "" {
		return
	}
	c.Context = generatedContext
	c.Content = generatedContext + "\n\n" + c.RawContent
}

// DocumentContext extracts document-level context shared by every chunk
// from one file: import/package info for code, a header outline for
// markdown.
func DocumentContext(chunks []*chunk.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	first := chunks[0]
	switch first.ContentType {
	case chunk.ContentTypeCode:
		if first.Context != "" {
			return fmt.Sprintf("File: %s\n%s", first.FilePath, first.Context)
		}
		return fmt.Sprintf("File: %s", first.FilePath)

	case chunk.ContentTypeMarkdown:
		headers := []string{fmt.Sprintf("Document: %s", first.FilePath)}
		for _, c := range chunks {
			if len(c.Symbols) > 0 && c.Symbols[0].Type == chunk.SymbolTypeFunction {
				headers = append(headers, "- "+c.Symbols[0].Name)
			}
		}
		if len(headers) > 5 {
			headers = append(headers[:5], "...")
		}
		return strings.Join(headers, "\n")

	default:
		return fmt.Sprintf("File: %s", first.FilePath)
	}
}

func truncate(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "\n... [truncated]"
}
