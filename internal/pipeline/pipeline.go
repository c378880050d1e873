package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/codesearch/internal/chunk"
	"github.com/Aman-CERP/codesearch/internal/contextgen"
	searcherrors "github.com/Aman-CERP/codesearch/internal/errors"
	"github.com/Aman-CERP/codesearch/internal/queue"
	"github.com/Aman-CERP/codesearch/internal/storemgr"
	"github.com/Aman-CERP/codesearch/internal/store"
	"github.com/Aman-CERP/codesearch/internal/tracker"
)

// Config controls the embedding queue's worker pool for every store this
// pipeline drives.
type Config struct {
	EmbedWorkers   int
	EmbedBatchSize int
	MaxQueuedJobs  int
}

// DefaultConfig returns the same worker/batch defaults EmbeddingQueue
// applies itself when left zero-valued.
func DefaultConfig() Config {
	return Config{EmbedWorkers: 1, EmbedBatchSize: 32}
}

// Embedder is the subset of embed.Embedder the embedding queue drives.
type Embedder = queue.Embedder

// storeQueues bundles one store's write queues and chunkers, built lazily
// the first time that store is touched by this pipeline.
type storeQueues struct {
	sparse *queue.SparseWriteQueue
	embed  *queue.EmbeddingQueue
	code   chunk.Chunker
	md     chunk.Chunker
}

// Pipeline admits files into a store: it chunks them and fans the chunks
// out to the sparse write queue and embedding queue, returning as soon as
// the work is queued rather than waiting for it to land in the indexes.
type Pipeline struct {
	dataDir    string
	stores     *storemgr.Manager
	embedder   Embedder
	cfg        Config
	log        *slog.Logger
	contextGen contextgen.Generator

	mu     sync.Mutex
	queues map[string]*storeQueues
}

// SetContextGen enables contextual retrieval: every chunk IndexFiles admits
// from this point on is enriched via gen before it reaches the sparse and
// embedding queues. A nil gen disables enrichment (the default).
func (p *Pipeline) SetContextGen(gen contextgen.Generator) {
	p.contextGen = gen
}

// New builds a Pipeline. dataDir is the root under which each store's
// queue journals live (<dataDir>/queues/<store>/...).
func New(dataDir string, stores *storemgr.Manager, embedder Embedder, cfg Config, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = DefaultConfig().EmbedWorkers
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultConfig().EmbedBatchSize
	}
	return &Pipeline{
		dataDir:  dataDir,
		stores:   stores,
		embedder: embedder,
		cfg:      cfg,
		log:      log.With("component", "pipeline"),
		queues:   make(map[string]*storeQueues),
	}
}

func (p *Pipeline) queuesFor(ctx context.Context, name string, st *storemgr.Store) (*storeQueues, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if qs, ok := p.queues[name]; ok {
		return qs, nil
	}

	sparseQ, err := queue.NewSparseWriteQueue(p.dataDir, name, st.Sparse, p.log)
	if err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("open sparse queue for %q: %w", name, err))
	}
	embedQ, err := queue.NewEmbeddingQueue(p.dataDir, name, p.embedder, st.Dense, queue.EmbeddingQueueConfig{
		Workers:   p.cfg.EmbedWorkers,
		BatchSize: p.cfg.EmbedBatchSize,
		MaxQueued: p.cfg.MaxQueuedJobs,
	}, p.log)
	if err != nil {
		sparseQ.Close()
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("open embedding queue for %q: %w", name, err))
	}

	sparseQ.Start(ctx)
	embedQ.Start(ctx)

	codeChunker := chunk.Chunker(chunk.NewCodeChunker())
	mdChunker := chunk.Chunker(chunk.NewMarkdownChunker())
	if st.Chunking.ChunkSize > 0 || st.Chunking.ChunkOverlap > 0 {
		codeOpts := chunk.CodeChunkerOptions{MaxChunkTokens: st.Chunking.ChunkSize, OverlapTokens: st.Chunking.ChunkOverlap}
		mdOpts := chunk.MarkdownChunkerOptions{MaxChunkTokens: st.Chunking.ChunkSize, OverlapTokens: st.Chunking.ChunkOverlap}
		if codeOpts.MaxChunkTokens <= 0 {
			codeOpts.MaxChunkTokens = chunk.DefaultMaxChunkTokens
		}
		if codeOpts.OverlapTokens <= 0 {
			codeOpts.OverlapTokens = chunk.DefaultOverlapTokens
		}
		if mdOpts.MaxChunkTokens <= 0 {
			mdOpts.MaxChunkTokens = chunk.DefaultMaxChunkTokens
		}
		if mdOpts.OverlapTokens <= 0 {
			mdOpts.OverlapTokens = chunk.DefaultOverlapTokens
		}
		codeChunker = chunk.NewCodeChunkerWithOptions(codeOpts)
		mdChunker = chunk.NewMarkdownChunkerWithOptions(mdOpts)
	}

	qs := &storeQueues{sparse: sparseQ, embed: embedQ, code: codeChunker, md: mdChunker}
	p.queues[name] = qs
	return qs, nil
}

// IndexFiles admits files into storeName: change-checks them against the
// tracker (unless force), chunks the survivors, and enqueues the chunks
// for sparse and dense indexing. It returns once the work is queued; the
// sparse and dense indexes are only eventually consistent with the
// result, while the tracker snapshot is updated before this call returns
// so a crash between queueing and embedding never causes a file to be
// silently re-skipped as "unchanged" on the next run.
func (p *Pipeline) IndexFiles(ctx context.Context, storeName string, files []FileInput, force bool) (*AcceptResult, error) {
	st, err := p.stores.Ensure(ctx, storeName)
	if err != nil {
		return nil, err
	}
	qs, err := p.queuesFor(ctx, storeName, st)
	if err != nil {
		return nil, err
	}

	result := &AcceptResult{JobID: newJobID()}

	type accepted struct {
		doc   *store.Document
		job   queue.IndexJob
		entry *tracker.Entry
	}
	var batch []accepted

	for _, f := range files {
		relPath := normalizePath(f.Path)

		if len(f.Content) > MaxFileSize {
			result.Skipped = append(result.Skipped, Skip{Path: relPath, Reason: SkipTooLarge})
			continue
		}
		if isBinaryContent(f.Content) {
			result.Skipped = append(result.Skipped, Skip{Path: relPath, Reason: SkipBinary})
			continue
		}

		hash := tracker.HashContent(f.Content)
		if !force && st.Tracker.CheckChanges(relPath, hash) == tracker.ChangeNone {
			result.SkippedChanged++
			continue
		}

		language := detectLanguage(relPath)
		var chunker chunk.Chunker
		switch detectContentKind(language) {
		case contentCode:
			chunker = qs.code
		case contentMarkdown:
			chunker = qs.md
		default:
			result.Skipped = append(result.Skipped, Skip{Path: relPath, Reason: SkipEmpty, Detail: "unsupported content type"})
			continue
		}

		outcome, err := chunker.Chunk(ctx, &chunk.FileInput{Path: relPath, Content: f.Content, Language: language})
		if err != nil {
			result.Skipped = append(result.Skipped, Skip{Path: relPath, Reason: SkipChunkErr, Detail: err.Error()})
			continue
		}
		if len(outcome.Chunks) == 0 {
			result.Skipped = append(result.Skipped, Skip{Path: relPath, Reason: SkipEmpty})
			continue
		}

		if p.contextGen != nil {
			docContext := contextgen.DocumentContext(outcome.Chunks)
			texts, err := p.contextGen.GenerateBatch(ctx, outcome.Chunks, docContext)
			if err != nil {
				p.log.Warn("context generation failed", "store", storeName, "path", relPath, "error", err)
			} else {
				for i, c := range outcome.Chunks {
					contextgen.Enrich(c, texts[i])
				}
			}
		}

		for _, c := range outcome.Chunks {
			symbols := joinSymbols(c.SymbolNames())
			text := buildEmbedText(relPath, symbols, c.Content)
			batch = append(batch, accepted{
				doc: &store.Document{
					ID:       c.ID,
					Content:  text,
					Symbols:  symbols,
					Path:     relPath,
					Language: language,
				},
				job: queue.IndexJob{
					DocID:   c.ID,
					Content: text,
					Payload: store.ChunkPayload{
						Path:       relPath,
						Language:   language,
						ChunkIndex: c.ChunkIndex,
						StartLine:  c.StartLine,
						EndLine:    c.EndLine,
					},
				},
			})
		}

		result.FilesAccepted++
		result.ChunksQueued += len(outcome.Chunks)
		batch[len(batch)-1].entry = &tracker.Entry{
			Path:        relPath,
			ContentHash: hash,
			Size:        int64(len(f.Content)),
			ModTime:     time.Now(),
			ChunkCount:  len(outcome.Chunks),
			IndexedAt:   time.Now(),
		}
	}

	if len(batch) == 0 {
		return result, nil
	}

	for _, a := range batch {
		if err := qs.sparse.Enqueue(queue.SparseJob{Op: queue.OpUpsert, Doc: a.doc}); err != nil {
			p.log.Warn("sparse enqueue failed", "store", storeName, "doc_id", a.doc.ID, "error", err)
		}
	}

	// Commit the tracker snapshot before embeddings finish: at-least-once
	// admission, never silently dropped on the next incremental run.
	seen := make(map[string]struct{}, len(batch))
	for _, a := range batch {
		if a.entry == nil {
			continue
		}
		if _, ok := seen[a.entry.Path]; ok {
			continue
		}
		seen[a.entry.Path] = struct{}{}
		if err := st.Tracker.Track(ctx, a.entry); err != nil {
			return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("track %q: %w", a.entry.Path, err))
		}
	}

	for _, a := range batch {
		if err := qs.embed.Enqueue(a.job); err != nil {
			p.log.Warn("embedding enqueue failed", "store", storeName, "doc_id", a.job.DocID, "error", err)
		}
	}

	return result, nil
}

// DeleteFiles removes paths (or everything under prefix, when paths is
// empty and prefix is set) from both the sparse segment and the vector
// collection, then untracks them.
func (p *Pipeline) DeleteFiles(ctx context.Context, storeName string, paths []string, prefix string) (*DeleteResult, error) {
	start := time.Now()
	st, err := p.stores.Ensure(ctx, storeName)
	if err != nil {
		return nil, err
	}
	qs, err := p.queuesFor(ctx, storeName, st)
	if err != nil {
		return nil, err
	}

	var sparseDeleted, denseDeleted int

	if len(paths) == 0 {
		ids, err := st.Sparse.DeleteByPathPrefix(ctx, prefix)
		if err != nil {
			return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("delete sparse prefix: %w", err))
		}
		sparseDeleted = len(ids)
		denseIDs, err := st.Dense.DeleteByPathPrefix(ctx, prefix)
		if err != nil {
			return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("delete dense prefix: %w", err))
		}
		denseDeleted = len(denseIDs)

		if err := qs.sparse.Enqueue(queue.SparseJob{Op: queue.OpDeletePrefix, Prefix: prefix}); err != nil {
			p.log.Warn("sparse delete-prefix journal enqueue failed", "store", storeName, "error", err)
		}

		if _, err := st.Tracker.UntrackByPrefix(ctx, prefix); err != nil {
			return nil, err
		}
		return &DeleteResult{SparseDeleted: sparseDeleted, DenseDeleted: denseDeleted, Elapsed: time.Since(start)}, nil
	}

	for _, rawPath := range paths {
		relPath := normalizePath(rawPath)
		if err := st.Tracker.Untrack(ctx, relPath); err != nil {
			return nil, err
		}
	}

	docIDs, err := idsForPaths(st.Sparse, paths)
	if err != nil {
		return nil, err
	}
	if len(docIDs) > 0 {
		if err := st.Sparse.Delete(ctx, docIDs); err != nil {
			return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("delete sparse docs: %w", err))
		}
		sparseDeleted = len(docIDs)
		if err := st.Dense.Delete(ctx, docIDs); err != nil {
			return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("delete dense vectors: %w", err))
		}
		denseDeleted = len(docIDs)
		for _, id := range docIDs {
			if err := qs.sparse.Enqueue(queue.SparseJob{Op: queue.OpDelete, DocID: id}); err != nil {
				p.log.Warn("sparse delete journal enqueue failed", "store", storeName, "doc_id", id, "error", err)
			}
		}
	}

	return &DeleteResult{SparseDeleted: sparseDeleted, DenseDeleted: denseDeleted, Elapsed: time.Since(start)}, nil
}

// idsForPaths scans the sparse segment's document IDs for every chunk
// belonging to one of paths. The sparse index has no path->ids lookup of
// its own, so this walks AllIDs once and filters via Get.
func idsForPaths(sparse store.BM25Index, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	want := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		want[normalizePath(p)] = struct{}{}
	}

	allIDs, err := sparse.AllIDs()
	if err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("list sparse ids: %w", err))
	}
	docs, err := sparse.Get(context.Background(), allIDs)
	if err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("fetch sparse docs: %w", err))
	}

	var matched []string
	for _, d := range docs {
		if _, ok := want[d.Path]; ok {
			matched = append(matched, d.ID)
		}
	}
	return matched, nil
}

// Reindex clears a store's tracked state and every chunk it holds, then
// re-runs IndexFiles over files with force set.
func (p *Pipeline) Reindex(ctx context.Context, storeName string, files []FileInput) (*AcceptResult, error) {
	if _, err := p.DeleteFiles(ctx, storeName, nil, ""); err != nil {
		return nil, err
	}
	return p.IndexFiles(ctx, storeName, files, true)
}

// SyncDeleted reconciles the tracker against currentPaths, deleting
// anything the tracker believes exists but that's absent from the set.
func (p *Pipeline) SyncDeleted(ctx context.Context, storeName string, currentPaths []string) (*SyncResult, error) {
	st, err := p.stores.Ensure(ctx, storeName)
	if err != nil {
		return nil, err
	}

	current := make(map[string]struct{}, len(currentPaths))
	for _, p := range currentPaths {
		current[normalizePath(p)] = struct{}{}
	}

	deleted := st.Tracker.FindDeleted(current)
	if len(deleted) == 0 {
		return &SyncResult{}, nil
	}
	if _, err := p.DeleteFiles(ctx, storeName, deleted, ""); err != nil {
		return nil, err
	}
	return &SyncResult{Deleted: deleted}, nil
}

// Close shuts down every store's queues this pipeline opened.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, qs := range p.queues {
		if err := qs.sparse.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := qs.embed.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func joinSymbols(names []string) string {
	if len(names) == 0 {
		return ""
	}
	out := names[0]
	for _, n := range names[1:] {
		out += " " + n
	}
	return out
}

// buildEmbedText assembles the text handed to the sparse and embedding
// queues: "<path>\n<symbols joined by space>\n<content>", truncated to
// MaxEmbedInputChars.
func buildEmbedText(path, symbols, content string) string {
	text := path + "\n" + symbols + "\n" + content
	if len(text) > MaxEmbedInputChars {
		text = text[:MaxEmbedInputChars]
	}
	return text
}

func newJobID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
