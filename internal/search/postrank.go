package search

import (
	"regexp"
	"strings"
)

// postrank applies dedup, diversity (MMR) and group-by-file limiting, in
// that order, to a relevance-sorted result slice. Each stage is a no-op
// when its corresponding option is disabled.
func postrank(results []Result, opts Options) []Result {
	if opts.EnableDedup {
		results = dedup(results, opts.DedupThreshold)
	}
	if opts.EnableDiversity {
		results = diversify(results, opts.DiversityLambda)
	}
	if opts.GroupByFile {
		results = groupByFile(results, opts.MaxChunksPerFile)
	}
	return results
}

// dedup drops any result whose content is near-identical (by token Jaccard
// similarity) to a higher-ranked result already kept. The store exposes no
// way to fetch a chunk's raw embedding vector by ID, so token-set overlap
// stands in for cosine similarity between embeddings; this is less precise
// but needs no extra store capability and catches the common case (near-
// duplicate chunks from copy-pasted or vendored code).
func dedup(results []Result, threshold float64) []Result {
	if threshold <= 0 {
		return results
	}
	kept := make([]Result, 0, len(results))
	keptSets := make([]map[string]struct{}, 0, len(results))
	for _, r := range results {
		set := tokenSet(r.Content)
		isDup := false
		for _, ks := range keptSets {
			if jaccard(set, ks) >= threshold {
				isDup = true
				break
			}
		}
		if !isDup {
			kept = append(kept, r)
			keptSets = append(keptSets, set)
		}
	}
	return kept
}

// diversify reorders results via maximal marginal relevance: repeatedly
// picks the remaining result maximizing
// lambda*relevance - (1-lambda)*maxSimilarityToAlreadyPicked.
// Content-token Jaccard similarity stands in for embedding cosine
// similarity, for the same reason as dedup.
func diversify(results []Result, lambda float64) []Result {
	if len(results) < 2 {
		return results
	}
	sets := make([]map[string]struct{}, len(results))
	for i, r := range results {
		sets[i] = tokenSet(r.Content)
	}

	remaining := make([]int, len(results))
	for i := range remaining {
		remaining[i] = i
	}
	picked := make([]int, 0, len(results))

	// Seed with the single most relevant result.
	picked = append(picked, remaining[0])
	remaining = remaining[1:]

	for len(remaining) > 0 {
		bestIdx, bestScore := -1, 0.0
		for ri, candidate := range remaining {
			maxSim := 0.0
			for _, p := range picked {
				if sim := jaccard(sets[candidate], sets[p]); sim > maxSim {
					maxSim = sim
				}
			}
			mmr := lambda*results[candidate].Score - (1-lambda)*maxSim
			if bestIdx == -1 || mmr > bestScore {
				bestIdx, bestScore = ri, mmr
			}
		}
		picked = append(picked, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]Result, len(results))
	for i, idx := range picked {
		out[i] = results[idx]
	}
	return out
}

// groupByFile keeps at most maxPerFile results per source file, preserving
// relative order: the first maxPerFile results of each file in input order
// are kept, whatever their scores.
func groupByFile(results []Result, maxPerFile int) []Result {
	if maxPerFile <= 0 {
		return results
	}
	counts := make(map[string]int, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if counts[r.Path] >= maxPerFile {
			continue
		}
		counts[r.Path]++
		out = append(out, r)
	}
	return out
}

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9_]+`)

func tokenSet(content string) map[string]struct{} {
	tokens := tokenPattern.FindAllString(strings.ToLower(content), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
