package search

import (
	"sort"

	"github.com/Aman-CERP/codesearch/internal/store"
)

// fusedResult is one chunk's combined view across the sparse and dense
// result sets, before enrichment with stored content.
type fusedResult struct {
	ChunkID      string
	SparseScore  float64
	DenseScore   float64
	FusedScore   float64
	SparseRank   int // 1-based rank in the sparse result set, 0 if absent
	MatchedTerms []string
}

// fuse combines sparse and dense result sets into a single ranked list.
// Each source's raw scores are independently min-max normalized to [0,1],
// then combined as sparseWeight*sparse + denseWeight*dense. A chunk present
// in only one source keeps a 0 for the other, so partial matches are never
// penalized below a chunk's single-source normalized score of 0.
//
// Ties are broken stable by original sparse rank (chunks absent from the
// sparse set sort after every sparse hit), then by chunk ID lexicographic.
func fuse(sparse []*store.BM25Result, dense []*store.VectorResult, sparseWeight, denseWeight float64) []*fusedResult {
	sparseNorm, sparseRank, sparseTerms := normalizeSparse(sparse)
	denseNorm := normalizeDense(dense)

	byID := make(map[string]*fusedResult, len(sparseNorm)+len(denseNorm))
	order := make([]string, 0, len(sparseNorm)+len(denseNorm))

	get := func(id string) *fusedResult {
		r, ok := byID[id]
		if !ok {
			r = &fusedResult{ChunkID: id}
			byID[id] = r
			order = append(order, id)
		}
		return r
	}

	for id, score := range sparseNorm {
		r := get(id)
		r.SparseScore = score
		r.SparseRank = sparseRank[id]
		r.MatchedTerms = sparseTerms[id]
	}
	for id, score := range denseNorm {
		r := get(id)
		r.DenseScore = score
	}

	results := make([]*fusedResult, 0, len(order))
	for _, id := range order {
		r := byID[id]
		r.FusedScore = sparseWeight*r.SparseScore + denseWeight*r.DenseScore
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return less(results[i], results[j])
	})
	return results
}

// less reports whether a should sort before b: higher fused score first,
// then lower sparse rank (0/absent last), then chunk ID ascending.
func less(a, b *fusedResult) bool {
	if a.FusedScore != b.FusedScore {
		return a.FusedScore > b.FusedScore
	}
	ar, br := rankOrZero(a.SparseRank), rankOrZero(b.SparseRank)
	if ar != br {
		return ar < br
	}
	return a.ChunkID < b.ChunkID
}

func rankOrZero(rank int) int {
	if rank <= 0 {
		return int(^uint(0) >> 1) // sorts absent/zero ranks last
	}
	return rank
}

func normalizeSparse(results []*store.BM25Result) (norm map[string]float64, rank map[string]int, terms map[string][]string) {
	norm = make(map[string]float64, len(results))
	rank = make(map[string]int, len(results))
	terms = make(map[string][]string, len(results))
	if len(results) == 0 {
		return
	}

	min, max := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}
	spread := max - min

	for i, r := range results {
		rank[r.DocID] = i + 1
		terms[r.DocID] = r.MatchedTerms
		if spread == 0 {
			norm[r.DocID] = 1
			continue
		}
		norm[r.DocID] = (r.Score - min) / spread
	}
	return
}

func normalizeDense(results []*store.VectorResult) map[string]float64 {
	norm := make(map[string]float64, len(results))
	if len(results) == 0 {
		return norm
	}

	min, max := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}
	spread := max - min

	for _, r := range results {
		if spread == 0 {
			norm[r.ID] = 1
			continue
		}
		norm[r.ID] = float64((r.Score - min) / spread)
	}
	return norm
}
