package search

// Filter restricts which results a search is allowed to return.
type Filter struct {
	// PathPrefix keeps only results whose file path has this prefix.
	// Empty means no path filtering.
	PathPrefix string

	// Languages keeps only results tagged with one of these languages.
	// Empty means no language filtering.
	Languages []string
}

// Options configures a hybrid search call. Zero-value fields are filled in
// by withDefaults before a search runs.
type Options struct {
	// TopK is the number of results returned (default 20).
	TopK int

	// EnableReranking runs the configured reranker over the fused
	// candidates before truncation (default true).
	EnableReranking bool

	// RerankCandidates is how many fused results survive to the rerank
	// stage (default 50).
	RerankCandidates int

	// SparseWeight and DenseWeight control the fusion linear combination;
	// they should sum to 1.0 (default 0.5/0.5).
	SparseWeight float64
	DenseWeight  float64

	// EnableDedup drops near-duplicate results after reranking (default true).
	EnableDedup bool
	// DedupThreshold is the similarity above which a result is considered
	// a duplicate of one already kept (default 0.85).
	DedupThreshold float64

	// EnableDiversity reorders results via maximal marginal relevance to
	// reduce redundancy among the top results (default true).
	EnableDiversity bool
	// DiversityLambda trades relevance (1.0) against diversity (0.0) in
	// the MMR reordering (default 0.7).
	DiversityLambda float64

	// GroupByFile caps how many chunks from the same file survive
	// (default false; MaxChunksPerFile applies only when true).
	GroupByFile      bool
	MaxChunksPerFile int

	// IncludeContent controls whether Result.Content is populated in the
	// response or cleared before returning (default true).
	IncludeContent bool

	// Filter restricts results by path prefix and/or language.
	Filter Filter

	// PrefetchMultiplier scales how many candidates are pulled from each
	// source before fusion: prefetch = PrefetchMultiplier * max(TopK,
	// RerankCandidates) (default 3).
	PrefetchMultiplier int
}

// DefaultOptions returns the documented defaults for every field.
func DefaultOptions() Options {
	return Options{
		TopK:               20,
		EnableReranking:    true,
		RerankCandidates:   50,
		SparseWeight:       0.5,
		DenseWeight:        0.5,
		EnableDedup:        true,
		DedupThreshold:     0.85,
		EnableDiversity:    true,
		DiversityLambda:    0.7,
		GroupByFile:        false,
		MaxChunksPerFile:   3,
		IncludeContent:     true,
		PrefetchMultiplier: 3,
	}
}

// withDefaults fills in zero-valued fields using DefaultOptions. Booleans
// can't be defaulted this way (a caller-set false is indistinguishable from
// unset), so callers that want reranking/dedup/diversity off must build
// from DefaultOptions() and flip the field explicitly rather than from a
// bare zero-value Options{}.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.RerankCandidates <= 0 {
		o.RerankCandidates = d.RerankCandidates
	}
	if o.SparseWeight == 0 && o.DenseWeight == 0 {
		o.SparseWeight, o.DenseWeight = d.SparseWeight, d.DenseWeight
	}
	if o.DedupThreshold <= 0 {
		o.DedupThreshold = d.DedupThreshold
	}
	if o.DiversityLambda <= 0 {
		o.DiversityLambda = d.DiversityLambda
	}
	if o.MaxChunksPerFile <= 0 {
		o.MaxChunksPerFile = d.MaxChunksPerFile
	}
	if o.PrefetchMultiplier <= 0 {
		o.PrefetchMultiplier = d.PrefetchMultiplier
	}
	return o
}
