// Package store provides the per-store sparse (BM25) and dense (HNSW)
// indexes that back hybrid search. Store identity, snapshotting and
// file-change tracking live in internal/tracker and internal/storemgr;
// this package is concerned only with the two indexes themselves.
package store

import (
	"context"
	"fmt"
)

// ContentType represents the type of content in a chunk.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
)

// Document represents a document to be indexed in the sparse segment. ID is
// the chunk's doc_id. Symbols/Path/Language feed the boosted fields of the
// code analyzer (symbols > path > content); a Document with only Content
// set still indexes fine against the default field.
type Document struct {
	ID       string // doc_id
	Content  string // path + symbols + chunk content, truncated to the embed max input
	Symbols  string // space-joined symbol names, for the high-boost field
	Path     string // file path, for the path field
	Language string // language tag, for exact-match filtering
}

// BM25Result represents a single BM25 search result.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about the BM25 index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Index provides keyword search using BM25 algorithm.
type BM25Index interface {
	// Index adds documents to the index
	Index(ctx context.Context, docs []*Document) error

	// Search returns documents matching query, scored by BM25
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// SearchFiltered behaves like Search but restricts hits to those whose
	// path falls under pathPrefix (ignored if empty) and whose language is
	// one of languages (ignored if empty), applied inside the search so a
	// restrictive filter doesn't starve a size-limited prefetch.
	SearchFiltered(ctx context.Context, query string, limit int, pathPrefix string, languages []string) ([]*BM25Result, error)

	// Get returns the stored documents for ids, skipping any ID with no
	// stored document. The sparse segment is the source of truth for chunk
	// content, so this is how the hybrid engine enriches a fused result.
	Get(ctx context.Context, ids []string) ([]*Document, error)

	// Delete removes documents from index
	Delete(ctx context.Context, docIDs []string) error

	// DeleteByPathPrefix removes every document whose path field falls
	// under prefix, returning the removed doc IDs.
	DeleteByPathPrefix(ctx context.Context, prefix string) ([]string, error)

	// AllIDs returns all document IDs in the index (for consistency checks)
	AllIDs() ([]string, error)

	// Stats returns index statistics
	Stats() *IndexStats

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// BM25Config configures the BM25 index.
type BM25Config struct {
	// K1 is the term frequency saturation parameter (default: 1.2)
	K1 float64

	// B is the length normalization parameter (default: 0.75)
	B float64

	// StopWords is a list of words to filter out. BleveBM25Index stores it
	// but does not apply it: its analyzer always filters DefaultCodeStopWords.
	StopWords []string

	// MinTokenLength is minimum token length to index (default: 2)
	MinTokenLength int
}

// DefaultBM25Config returns default BM25 configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultCodeStopWords,
		MinTokenLength: 2,
	}
}

// DefaultCodeStopWords contains programming keywords to filter out.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// VectorResult represents a single vector search result.
type VectorResult struct {
	ID       string  // Chunk ID
	Distance float32 // Lower is more similar (0-2 for cosine)
	Score    float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension (768 for Hugot/EmbeddingGemma, 384 for MiniLM, 256 for static)
	Dimensions int

	// Quantization is the vector precision: "f32", "f16", "i8" (default: "f16")
	Quantization string

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean) (default: "cos")
	Metric string

	// M is HNSW max connections per layer (default: 32)
	M int

	// EfConstruction is HNSW build-time search width (default: 128)
	EfConstruction int

	// EfSearch is HNSW query-time search width (default: 64)
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Quantization:   "f16",
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// ChunkPayload is the per-vector side data needed to filter and group
// search results without a round trip to the sparse segment: which file a
// chunk came from, its language, and its position within the file.
type ChunkPayload struct {
	Path       string
	Language   string
	ChunkIndex int
	StartLine  int
	EndLine    int
}

// VectorStore provides semantic search using HNSW algorithm.
type VectorStore interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// AddWithPayload inserts vectors along with the per-chunk metadata
	// needed for path-prefix deletion and filtered search.
	AddWithPayload(ctx context.Context, ids []string, vectors [][]float32, payloads []ChunkPayload) error

	// Search finds k nearest neighbors to query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// SearchFiltered finds k nearest neighbors whose payload satisfies
	// keep. It over-fetches internally since coder/hnsw has no native
	// filtered search.
	SearchFiltered(ctx context.Context, query []float32, k int, keep func(ChunkPayload) bool) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// DeleteByPathPrefix removes every vector whose payload path falls
	// under prefix, returning the removed IDs.
	DeleteByPathPrefix(ctx context.Context, prefix string) ([]string, error)

	// Payload returns the stored payload for id, if any.
	Payload(id string) (ChunkPayload, bool)

	// AllIDs returns all vector IDs in the store (for consistency checks)
	AllIDs() []string

	// Contains checks if ID exists.
	Contains(id string) bool

	// Count returns number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (store must be rebuilt)", e.Expected, e.Got)
}
