package contextgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Aman-CERP/codesearch/internal/chunk"
)

const (
	defaultTimeout = 5 * time.Second
	maxChunkChars  = 1500
)

// llmGenerator generates context by prompting an Ollama model.
type llmGenerator struct {
	client *http.Client
	host   string
	model  string
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

const codePromptTemplate = `You are analyzing code. Generate a 1-2 sentence context for this code chunk.

File: %s

Document context:
%s

Code chunk:
%s

Instructions:
- Describe what this code does and its purpose
- Be specific about function names and types
- Keep it under 100 tokens
- Output ONLY the context, no preamble

Context:`

const markdownPromptTemplate = `You are analyzing documentation. Generate a 1-2 sentence context for this section.

Document: %s

Section content:
%s

Instructions:
- Summarize what this section explains
- Note its relationship to the document
- Keep it under 100 tokens
- Output ONLY the context, no preamble

Context:`

func newLLMGenerator(cfg Config) *llmGenerator {
	return &llmGenerator{
		client: &http.Client{Timeout: defaultTimeout},
		host:   cfg.OllamaHost,
		model:  cfg.Model,
	}
}

// GenerateContext implements Generator.
func (l *llmGenerator) GenerateContext(ctx context.Context, c *chunk.Chunk, docContext string) (string, error) {
	if c == nil {
		return "", nil
	}

	var prompt string
	switch c.ContentType {
	case chunk.ContentTypeMarkdown:
		prompt = fmt.Sprintf(markdownPromptTemplate, c.FilePath, truncate(c.RawContent, maxChunkChars))
	default:
		prompt = fmt.Sprintf(codePromptTemplate, c.FilePath, docContext, truncate(c.RawContent, maxChunkChars))
	}

	response, err := l.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "Context:")
	return strings.TrimSpace(response), nil
}

// GenerateBatch implements Generator.
func (l *llmGenerator) GenerateBatch(ctx context.Context, chunks []*chunk.Chunk, docContext string) ([]string, error) {
	results := make([]string, len(chunks))
	for i, c := range chunks {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		text, err := l.GenerateContext(ctx, c, docContext)
		if err != nil {
			slog.Debug("llm context generation failed, using empty", "chunk_id", c.ID, "error", err)
			continue
		}
		results[i] = text
	}
	return results, nil
}

func (l *llmGenerator) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: l.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return genResp.Response, nil
}

// Available implements Generator.
func (l *llmGenerator) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.host+"/api/tags", nil)
	if err != nil {
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req = req.WithContext(checkCtx)

	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// ModelName implements Generator.
func (l *llmGenerator) ModelName() string { return l.model }

// Close implements Generator.
func (l *llmGenerator) Close() error { return nil }

var _ Generator = (*llmGenerator)(nil)
