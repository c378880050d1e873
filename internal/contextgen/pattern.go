package contextgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/codesearch/internal/chunk"
)

// patternGenerator derives context from structural cues already present on
// the chunk (file path, leading symbol, doc comment) without calling a
// model. Used by HybridGenerator as the fallback when the LLM backend is
// unavailable or errors.
type patternGenerator struct {
	codeChunks bool
}

func newPatternGenerator(cfg Config) *patternGenerator {
	return &patternGenerator{codeChunks: cfg.CodeChunks}
}

// GenerateContext implements Generator.
func (p *patternGenerator) GenerateContext(_ context.Context, c *chunk.Chunk, _ string) (string, error) {
	if c == nil {
		return "", nil
	}
	if c.ContentType == chunk.ContentTypeCode && !p.codeChunks {
		return "", nil
	}

	parts := []string{fmt.Sprintf("From file: %s", c.FilePath)}

	if len(c.Symbols) > 0 {
		sym := c.Symbols[0]
		parts = append(parts, fmt.Sprintf("Defines: %s %s", sym.Type, sym.Name))
		if sym.DocComment != "" {
			if first := firstSentence(sym.DocComment); first != "" {
				parts = append(parts, fmt.Sprintf("Purpose: %s", first))
			}
		}
	}

	if c.ContentType == chunk.ContentTypeCode && c.Language != "" {
		parts = append(parts, fmt.Sprintf("Language: %s", c.Language))
	}

	return strings.Join(parts, ". ") + ".", nil
}

// GenerateBatch implements Generator.
func (p *patternGenerator) GenerateBatch(ctx context.Context, chunks []*chunk.Chunk, docContext string) ([]string, error) {
	results := make([]string, len(chunks))
	for i, c := range chunks {
		text, err := p.GenerateContext(ctx, c, docContext)
		if err != nil {
			return nil, err
		}
		results[i] = text
	}
	return results, nil
}

// Available implements Generator: pattern generation needs no model.
func (p *patternGenerator) Available(_ context.Context) bool { return true }

// ModelName implements Generator.
func (p *patternGenerator) ModelName() string { return "pattern-based" }

// Close implements Generator.
func (p *patternGenerator) Close() error { return nil }

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimSpace(text)

	for i, r := range text {
		if r == '.' || r == '\n' {
			return strings.TrimSuffix(strings.TrimSpace(text[:i+1]), ".")
		}
	}
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}

var _ Generator = (*patternGenerator)(nil)

// HybridGenerator prefers the LLM backend and falls back to pattern-based
// generation whenever the model is unreachable or errors.
type HybridGenerator struct {
	llm        *llmGenerator
	pattern    *patternGenerator
	codeChunks bool
}

func newHybridGenerator(llm *llmGenerator, cfg Config) *HybridGenerator {
	return &HybridGenerator{
		llm:        llm,
		pattern:    newPatternGenerator(cfg),
		codeChunks: cfg.CodeChunks,
	}
}

// GenerateContext implements Generator.
func (h *HybridGenerator) GenerateContext(ctx context.Context, c *chunk.Chunk, docContext string) (string, error) {
	if c != nil && c.ContentType == chunk.ContentTypeCode && !h.codeChunks {
		return "", nil
	}
	if h.llm != nil && h.llm.Available(ctx) {
		if text, err := h.llm.GenerateContext(ctx, c, docContext); err == nil && text != "" {
			return text, nil
		}
	}
	return h.pattern.GenerateContext(ctx, c, docContext)
}

// GenerateBatch implements Generator.
func (h *HybridGenerator) GenerateBatch(ctx context.Context, chunks []*chunk.Chunk, docContext string) ([]string, error) {
	if h.llm != nil && h.llm.Available(ctx) {
		if texts, err := h.llm.GenerateBatch(ctx, chunks, docContext); err == nil {
			for i, c := range chunks {
				if c != nil && c.ContentType == chunk.ContentTypeCode && !h.codeChunks {
					texts[i] = ""
				} else if texts[i] == "" {
					texts[i], _ = h.pattern.GenerateContext(ctx, c, docContext)
				}
			}
			return texts, nil
		}
	}
	return h.pattern.GenerateBatch(ctx, chunks, docContext)
}

// Available implements Generator.
func (h *HybridGenerator) Available(ctx context.Context) bool {
	return h.pattern.Available(ctx) || (h.llm != nil && h.llm.Available(ctx))
}

// ModelName implements Generator.
func (h *HybridGenerator) ModelName() string {
	if h.llm != nil {
		return h.llm.ModelName() + "+pattern"
	}
	return h.pattern.ModelName()
}

// Close implements Generator.
func (h *HybridGenerator) Close() error {
	if h.llm != nil {
		return h.llm.Close()
	}
	return nil
}

var _ Generator = (*HybridGenerator)(nil)
