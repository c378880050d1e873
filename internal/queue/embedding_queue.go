package queue

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	searcherrors "github.com/Aman-CERP/codesearch/internal/errors"
	"github.com/Aman-CERP/codesearch/internal/store"
)

// ErrQueueFull is returned by Enqueue when the embedding queue is already
// holding max_queued_chunks jobs.
var ErrQueueFull = searcherrors.QueueFull("embedding queue is full")

// IndexJob is one chunk awaiting embedding and insertion into the vector
// collection.
type IndexJob struct {
	DocID   string
	Content string
	Payload store.ChunkPayload
}

// Embedder turns chunk text into vectors, batched for throughput.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingQueue is a per-store FIFO of chunks awaiting embedding, drained
// by a pool of workers that batch jobs up to batchSize before calling the
// embedder and writing the results into the vector collection.
type EmbeddingQueue struct {
	embedder  Embedder
	sink      store.VectorStore
	journal   *journal[IndexJob]
	logger    *slog.Logger
	batchSize int
	maxQueued int
	workers   int
	retryCfg  searcherrors.RetryConfig

	mu      sync.Mutex
	cond    *sync.Cond
	pending *list.List // of IndexJob
	retries map[*list.Element]int
	parked  []IndexJob
	closed  bool

	wg sync.WaitGroup
}

// EmbeddingQueueConfig controls worker count, batch size and backpressure.
type EmbeddingQueueConfig struct {
	Workers   int // EMBED_WORKERS
	BatchSize int // EMBED_BATCH_SIZE
	MaxQueued int // EMBED_QUEUE_MAX, 0 means unbounded
}

// NewEmbeddingQueue opens (or recovers) the queue backed by a journal at
// <dataDir>/queues/<name>/embedding.log.
func NewEmbeddingQueue(dataDir, name string, embedder Embedder, sink store.VectorStore, cfg EmbeddingQueueConfig, logger *slog.Logger) (*EmbeddingQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}

	journalPath := filepath.Join(dataDir, "queues", name, "embedding.log")
	j, recovered, err := openJournal[IndexJob](journalPath)
	if err != nil {
		return nil, fmt.Errorf("open embedding queue journal: %w", err)
	}

	q := &EmbeddingQueue{
		embedder:  embedder,
		sink:      sink,
		journal:   j,
		logger:    logger.With("queue", "embedding", "store", name),
		batchSize: cfg.BatchSize,
		maxQueued: cfg.MaxQueued,
		workers:   cfg.Workers,
		retryCfg:  searcherrors.EmbeddingRetryConfig(),
		pending:   list.New(),
		retries:   make(map[*list.Element]int),
	}
	q.cond = sync.NewCond(&q.mu)

	for _, job := range recovered {
		q.pending.PushBack(job)
	}
	return q, nil
}

// Start launches the worker pool. Call Stop or Close to shut it down.
func (q *EmbeddingQueue) Start(ctx context.Context) {
	q.wg.Add(q.workers)
	for i := 0; i < q.workers; i++ {
		go q.worker(ctx)
	}
}

// Enqueue journals job and appends it to the FIFO, or returns ErrQueueFull
// if max_queued_chunks jobs are already waiting.
func (q *EmbeddingQueue) Enqueue(job IndexJob) error {
	q.mu.Lock()
	if q.maxQueued > 0 && q.pending.Len() >= q.maxQueued {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.mu.Unlock()

	if err := q.journal.append(job); err != nil {
		return fmt.Errorf("journal embedding job: %w", err)
	}

	q.mu.Lock()
	q.pending.PushBack(job)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

func (q *EmbeddingQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		batch, ok := q.waitForBatch()
		if !ok {
			return
		}
		q.apply(ctx, batch)
	}
}

type embedBatchItem struct {
	job   IndexJob
	elem  *list.Element
	retry int
}

func (q *EmbeddingQueue) waitForBatch() ([]embedBatchItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}

	var batch []embedBatchItem
	for q.pending.Len() > 0 && len(batch) < q.batchSize {
		e := q.pending.Front()
		job := e.Value.(IndexJob)
		q.pending.Remove(e)
		retry := q.retries[e]
		delete(q.retries, e)
		batch = append(batch, embedBatchItem{job: job, elem: e, retry: retry})
	}
	return batch, true
}

func (q *EmbeddingQueue) apply(ctx context.Context, batch []embedBatchItem) {
	if len(batch) == 0 {
		return
	}

	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.job.Content
	}

	var vectors [][]float32
	err := searcherrors.Retry(ctx, q.retryCfg, func() error {
		var embedErr error
		vectors, embedErr = q.embedder.Embed(ctx, texts)
		return embedErr
	})
	if err != nil {
		q.logger.Error("embedding batch failed", "count", len(batch), "error", err)
		// Retry has already spent the retry schedule: park the batch.
		q.mu.Lock()
		for _, item := range batch {
			q.logger.Warn("embedding job parked after max retries", "doc_id", item.job.DocID)
			q.parked = append(q.parked, item.job)
		}
		q.mu.Unlock()
		return
	}

	ids := make([]string, len(batch))
	payloads := make([]store.ChunkPayload, len(batch))
	for i, item := range batch {
		ids[i] = item.job.DocID
		payloads[i] = item.job.Payload
	}

	if err := q.sink.AddWithPayload(ctx, ids, vectors, payloads); err != nil {
		q.logger.Error("vector insert failed", "count", len(batch), "error", err)
		q.retryOrPark(batch)
		return
	}

	q.compactAfter()
}

func (q *EmbeddingQueue) retryOrPark(batch []embedBatchItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range batch {
		if item.retry >= maxRetries {
			q.logger.Warn("embedding job parked after max retries", "doc_id", item.job.DocID)
			q.parked = append(q.parked, item.job)
			continue
		}
		e := q.pending.PushFront(item.job)
		q.retries[e] = item.retry + 1
	}
}

func (q *EmbeddingQueue) compactAfter() {
	q.mu.Lock()
	remaining := make([]IndexJob, 0, q.pending.Len()+len(q.parked))
	for e := q.pending.Front(); e != nil; e = e.Next() {
		remaining = append(remaining, e.Value.(IndexJob))
	}
	remaining = append(remaining, q.parked...)
	q.mu.Unlock()

	if err := q.journal.compact(remaining); err != nil {
		q.logger.Error("embedding journal compact failed", "error", err)
	}
}

// Stats reports the current queue depth and parked-job count.
func (q *EmbeddingQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Pending: q.pending.Len(), Parked: len(q.parked)}
}

// Stop signals every worker to exit once its current batch finishes, then
// blocks until all have.
func (q *EmbeddingQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.wg.Wait()
}

// Close stops all workers and closes the journal file handle.
func (q *EmbeddingQueue) Close() error {
	q.Stop()
	return q.journal.close()
}

// waitIdle blocks until the queue has drained, for tests. Not used by the
// production drain path, which is purely event-driven.
func (q *EmbeddingQueue) waitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		q.mu.Lock()
		empty := q.pending.Len() == 0
		q.mu.Unlock()
		if empty {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
