// Package search implements the hybrid search engine: sparse (BM25) and
// dense (vector) retrieval fused by weighted score normalization, then
// optionally reranked and postranked (dedup, diversify, group-by-file).
package search

// Result is a single hybrid-search hit, enriched with the chunk's stored
// content and position so a caller never has to round-trip to the sparse
// or dense store again.
type Result struct {
	ChunkID  string
	Path     string
	Language string

	StartLine  int
	EndLine    int
	ChunkIndex int

	// Content is the chunk's stored text. Cleared by Search when
	// Options.IncludeContent is false.
	Content string

	// SparseScore and DenseScore are the per-source scores after min-max
	// normalization, each in [0,1]. A result missing from a source keeps
	// that source's score at 0.
	SparseScore float64
	DenseScore  float64

	// FusedScore is the weighted linear combination of SparseScore and
	// DenseScore, before any reranking.
	FusedScore float64

	// RerankScore and RerankApplied describe the optional rerank stage.
	// RerankScore is meaningless when RerankApplied is false.
	RerankScore   float64
	RerankApplied bool

	// Score is the score Search actually sorts and truncates by: the
	// rerank score when RerankApplied, otherwise FusedScore.
	Score float64

	// MatchedTerms are the sparse-index query terms that matched this
	// chunk, carried through from the BM25 result for highlighting.
	MatchedTerms []string

	// Symbols are the chunk's declared symbol names, carried through from
	// the sparse segment's stored document.
	Symbols []string
}
