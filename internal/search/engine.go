package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/codesearch/internal/embed"
	"github.com/Aman-CERP/codesearch/internal/query"
	"github.com/Aman-CERP/codesearch/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Qwen3QueryInstruction is the instruction prefix embedders that follow the
// Qwen3 convention expect on queries (not on indexed documents): queries
// need a task-specific prefix for optimal retrieval.
const Qwen3QueryInstruction = "Instruct: Given a code search query, retrieve relevant code snippets that answer the query\nQuery:"

func formatQueryForEmbedding(q string) string {
	return Qwen3QueryInstruction + q
}

// Engine is the hybrid search engine: it fuses sparse (BM25) and dense
// (vector) retrieval, optionally reranks, then dedups/diversifies/groups
// the result before truncating to the requested top K.
type Engine struct {
	sparse   store.BM25Index
	dense    store.VectorStore
	embedder embed.Embedder
	reranker embed.Reranker
	parser   *query.Parser
	log      *slog.Logger
}

// New constructs an Engine. sparse, dense and embedder are required;
// reranker may be nil (reranking is then always skipped regardless of
// Options.EnableReranking) and parser may be nil (queries are then used
// verbatim, unparsed).
func New(sparse store.BM25Index, dense store.VectorStore, embedder embed.Embedder, reranker embed.Reranker, parser *query.Parser, log *slog.Logger) (*Engine, error) {
	if sparse == nil {
		return nil, fmt.Errorf("%w: sparse index is required", ErrNilDependency)
	}
	if dense == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		sparse:   sparse,
		dense:    dense,
		embedder: embedder,
		reranker: reranker,
		parser:   parser,
		log:      log,
	}, nil
}

// Search runs the full hybrid search pipeline: parse the query, retrieve
// sparse and dense candidates concurrently (restricted to Options.Filter at
// the prefetch stage itself), fuse and truncate them, fetch and enrich the
// survivors with stored content, rerank, sort, postrank
// (dedup/diversify/group), then truncate to Options.TopK.
func (e *Engine) Search(ctx context.Context, rawQuery string, opts Options) ([]Result, error) {
	rawQuery = strings.TrimSpace(rawQuery)
	if rawQuery == "" {
		return nil, nil
	}
	opts = opts.withDefaults()

	searchQuery := rawQuery
	if e.parser != nil {
		parsed := e.parser.Parse(ctx, rawQuery)
		if parsed.SearchQuery != "" {
			searchQuery = parsed.SearchQuery
		}
	}

	prefetch := opts.PrefetchMultiplier * max(opts.TopK, opts.RerankCandidates)

	sparseResults, denseResults, err := e.retrieve(ctx, searchQuery, prefetch, opts.Filter)
	if err != nil {
		return nil, err
	}

	fused := fuse(sparseResults, denseResults, opts.SparseWeight, opts.DenseWeight)
	if len(fused) > opts.RerankCandidates {
		fused = fused[:opts.RerankCandidates]
	}

	results, err := e.fetchDocuments(ctx, fused)
	if err != nil {
		return nil, err
	}

	if opts.EnableReranking && e.reranker != nil && e.reranker.Available(ctx) && len(results) >= 2 {
		if err := e.rerank(ctx, rawQuery, results); err != nil {
			e.log.Warn("rerank failed, falling back to fused score", "error", err)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	results = postrank(results, opts)

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	if !opts.IncludeContent {
		for i := range results {
			results[i].Content = ""
		}
	}

	return results, nil
}

// retrieve runs the sparse and dense searches concurrently, tolerating a
// single-source failure: if one source errors, the other's results are
// still used so a degraded index doesn't take the whole engine down. filter
// is pushed into both searches so it restricts the limit-sized prefetch
// itself rather than being applied to the (much smaller) post-fusion set.
func (e *Engine) retrieve(ctx context.Context, searchQuery string, limit int, filter Filter) ([]*store.BM25Result, []*store.VectorResult, error) {
	var sparseResults []*store.BM25Result
	var denseResults []*store.VectorResult
	var sparseErr, denseErr error

	g, gctx := errgroup.WithContext(ctx)

	hasFilter := filter.PathPrefix != "" || len(filter.Languages) > 0

	g.Go(func() error {
		if hasFilter {
			sparseResults, sparseErr = e.sparse.SearchFiltered(gctx, searchQuery, limit, filter.PathPrefix, filter.Languages)
		} else {
			sparseResults, sparseErr = e.sparse.Search(gctx, searchQuery, limit)
		}
		return nil
	})

	g.Go(func() error {
		embeddings, embedErr := e.embedder.Embed(gctx, []string{formatQueryForEmbedding(searchQuery)})
		if embedErr != nil {
			denseErr = embedErr
			return nil
		}
		if len(embeddings) == 0 {
			denseErr = fmt.Errorf("embedder returned no vector for query")
			return nil
		}
		if hasFilter {
			denseResults, denseErr = e.dense.SearchFiltered(gctx, embeddings[0], limit, filterKeep(filter))
		} else {
			denseResults, denseErr = e.dense.Search(gctx, embeddings[0], limit)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if sparseErr != nil && denseErr != nil {
		return nil, nil, fmt.Errorf("sparse search failed: %w; dense search failed: %v", sparseErr, denseErr)
	}
	if sparseErr != nil {
		e.log.Warn("sparse search failed, continuing with dense results only", "error", sparseErr)
	}
	if denseErr != nil {
		e.log.Warn("dense search failed, continuing with sparse results only", "error", denseErr)
	}

	return sparseResults, denseResults, nil
}

// fetchDocuments enriches fused candidates with stored content (from the
// sparse segment, the source of truth for chunk text) and position
// metadata (from the dense store's payload). A candidate missing from both
// is dropped: there is nothing left to return to the caller.
func (e *Engine) fetchDocuments(ctx context.Context, fused []*fusedResult) ([]Result, error) {
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}

	docs, err := e.sparse.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching documents: %w", err)
	}
	docByID := make(map[string]*store.Document, len(docs))
	for _, d := range docs {
		docByID[d.ID] = d
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		doc, hasDoc := docByID[f.ChunkID]
		payload, hasPayload := e.dense.Payload(f.ChunkID)
		if !hasDoc && !hasPayload {
			continue
		}

		r := Result{
			ChunkID:      f.ChunkID,
			SparseScore:  f.SparseScore,
			DenseScore:   f.DenseScore,
			FusedScore:   f.FusedScore,
			Score:        f.FusedScore,
			MatchedTerms: f.MatchedTerms,
		}
		if hasDoc {
			r.Content = doc.Content
			r.Path = doc.Path
			r.Language = doc.Language
			if doc.Symbols != "" {
				r.Symbols = strings.Fields(doc.Symbols)
			}
		}
		if hasPayload {
			r.Path = payload.Path
			r.Language = payload.Language
			r.ChunkIndex = payload.ChunkIndex
			r.StartLine = payload.StartLine
			r.EndLine = payload.EndLine
		}
		results = append(results, r)
	}
	return results, nil
}

// filterKeep builds the predicate VectorStore.SearchFiltered uses to
// restrict dense prefetch to chunks satisfying f's path-prefix and language
// restrictions. Only called when f has at least one restriction set.
func filterKeep(f Filter) func(store.ChunkPayload) bool {
	langs := make(map[string]struct{}, len(f.Languages))
	for _, l := range f.Languages {
		langs[l] = struct{}{}
	}
	return func(p store.ChunkPayload) bool {
		if f.PathPrefix != "" && !strings.HasPrefix(p.Path, f.PathPrefix) {
			return false
		}
		if len(langs) > 0 {
			if _, ok := langs[p.Language]; !ok {
				return false
			}
		}
		return true
	}
}

// rerank scores results with the cross-encoder reranker and, on success,
// switches each result's sort Score to the rerank score.
func (e *Engine) rerank(ctx context.Context, rawQuery string, results []Result) error {
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Content
	}

	scores, err := e.reranker.Rerank(ctx, rawQuery, docs)
	if err != nil {
		return err
	}
	if len(scores) != len(results) {
		return fmt.Errorf("reranker returned %d scores for %d documents", len(scores), len(results))
	}

	for i := range results {
		results[i].RerankScore = float64(scores[i])
		results[i].RerankApplied = true
		results[i].Score = results[i].RerankScore
	}
	return nil
}

// Stats reports the underlying index sizes.
type Stats struct {
	SparseDocuments int
	DenseVectors    int
}

func (e *Engine) Stats() Stats {
	return Stats{
		SparseDocuments: e.sparse.Stats().DocumentCount,
		DenseVectors:    e.dense.Count(),
	}
}

// Close releases the underlying index resources.
func (e *Engine) Close() error {
	var errs []error
	if err := e.sparse.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.dense.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
