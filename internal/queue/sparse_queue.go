// Package queue buffers writes to the sparse and dense indexes so that
// ingestion never blocks on index I/O. Each store owns one SparseWriteQueue
// and one EmbeddingQueue; both survive a crash via an append-only journal
// replayed at startup.
package queue

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/Aman-CERP/codesearch/internal/store"
)

// SparseOp identifies what a SparseJob does to the sparse segment.
type SparseOp int

const (
	OpUpsert SparseOp = iota
	OpDelete
	OpDeletePrefix
)

// SparseJob is one unit of work against the sparse segment.
type SparseJob struct {
	Op     SparseOp
	Doc    *store.Document `json:"Doc,omitempty"`
	DocID  string          `json:"DocID,omitempty"`
	Prefix string          `json:"Prefix,omitempty"`
}

// maxRetries is how many times a failed job is retried before it is parked.
const maxRetries = 3

// CoalesceMaxDocs bounds how many consecutive pure-upsert jobs are batched
// into a single SparseSegment.Upsert call.
const CoalesceMaxDocs = 256

// SparseWriteQueue is a per-store FIFO of sparse-segment writes, drained by
// a single background goroutine so indexing never waits on Bleve I/O.
type SparseWriteQueue struct {
	writer  store.BM25Index
	journal *journal[SparseJob]
	logger  *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending *list.List // of SparseJob
	retries map[*list.Element]int
	parked  []SparseJob
	closed  bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSparseWriteQueue opens (or recovers) the queue backed by a journal at
// <dataDir>/queues/<name>/sparse.log, writing into writer once drained.
func NewSparseWriteQueue(dataDir, name string, writer store.BM25Index, logger *slog.Logger) (*SparseWriteQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	journalPath := filepath.Join(dataDir, "queues", name, "sparse.log")
	j, recovered, err := openJournal[SparseJob](journalPath)
	if err != nil {
		return nil, fmt.Errorf("open sparse queue journal: %w", err)
	}

	q := &SparseWriteQueue{
		writer:  writer,
		journal: j,
		logger:  logger.With("queue", "sparse", "store", name),
		pending: list.New(),
		retries: make(map[*list.Element]int),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)

	for _, job := range recovered {
		q.pending.PushBack(job)
	}
	return q, nil
}

// Enqueue journals job and appends it to the in-memory FIFO.
func (q *SparseWriteQueue) Enqueue(job SparseJob) error {
	if err := q.journal.append(job); err != nil {
		return fmt.Errorf("journal sparse job: %w", err)
	}

	q.mu.Lock()
	q.pending.PushBack(job)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

// Start launches the background drain goroutine. Call Stop to shut it down.
func (q *SparseWriteQueue) Start(ctx context.Context) {
	go q.run(ctx)
}

func (q *SparseWriteQueue) run(ctx context.Context) {
	defer close(q.doneCh)

	go func() {
		select {
		case <-ctx.Done():
			q.Stop()
		case <-q.stopCh:
		}
	}()

	for {
		batch, ok := q.waitForBatch()
		if !ok {
			return
		}
		q.apply(ctx, batch)
	}
}

// waitForBatch blocks until there is work or the queue is stopped, then
// pulls off up to CoalesceMaxDocs consecutive pure-upsert jobs (or a single
// delete/delete-prefix job, which cannot be coalesced with anything else).
func (q *SparseWriteQueue) waitForBatch() ([]batchItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}

	var batch []batchItem
	first := q.pending.Front()
	firstJob := first.Value.(SparseJob)

	if firstJob.Op != OpUpsert {
		q.pending.Remove(first)
		retry := q.retries[first]
		delete(q.retries, first)
		return []batchItem{{job: firstJob, elem: first, retry: retry}}, true
	}

	for q.pending.Len() > 0 && len(batch) < CoalesceMaxDocs {
		e := q.pending.Front()
		job := e.Value.(SparseJob)
		if job.Op != OpUpsert {
			break
		}
		q.pending.Remove(e)
		retry := q.retries[e]
		delete(q.retries, e)
		batch = append(batch, batchItem{job: job, elem: e, retry: retry})
	}
	return batch, true
}

type batchItem struct {
	job   SparseJob
	elem  *list.Element
	retry int
}

func (q *SparseWriteQueue) apply(ctx context.Context, batch []batchItem) {
	if len(batch) == 0 {
		return
	}

	if batch[0].job.Op == OpUpsert {
		docs := make([]*store.Document, 0, len(batch))
		for _, item := range batch {
			docs = append(docs, item.job.Doc)
		}
		if err := q.writer.Index(ctx, docs); err != nil {
			q.logger.Error("sparse upsert batch failed", "count", len(docs), "error", err)
			q.retryOrPark(batch)
			return
		}
		q.compactAfter(batch)
		return
	}

	item := batch[0]
	var err error
	switch item.job.Op {
	case OpDelete:
		err = q.writer.Delete(ctx, []string{item.job.DocID})
	case OpDeletePrefix:
		_, err = q.writer.DeleteByPathPrefix(ctx, item.job.Prefix)
	}
	if err != nil {
		q.logger.Error("sparse delete failed", "op", item.job.Op, "error", err)
		q.retryOrPark(batch)
		return
	}
	q.compactAfter(batch)
}

// retryOrPark re-enqueues a failed batch at the front of the FIFO with an
// incremented retry counter, or parks it once maxRetries is exceeded.
func (q *SparseWriteQueue) retryOrPark(batch []batchItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range batch {
		if item.retry >= maxRetries {
			q.logger.Warn("sparse job parked after max retries", "op", item.job.Op, "doc_id", item.job.DocID)
			q.parked = append(q.parked, item.job)
			continue
		}
		e := q.pending.PushFront(item.job)
		q.retries[e] = item.retry + 1
	}
}

// compactAfter drops the journal entries for a successfully applied batch.
// Since the journal only ever grows by append, compaction rewrites it from
// the current in-memory FIFO plus anything still parked.
func (q *SparseWriteQueue) compactAfter(batch []batchItem) {
	q.mu.Lock()
	remaining := make([]SparseJob, 0, q.pending.Len()+len(q.parked))
	for e := q.pending.Front(); e != nil; e = e.Next() {
		remaining = append(remaining, e.Value.(SparseJob))
	}
	remaining = append(remaining, q.parked...)
	q.mu.Unlock()

	if err := q.journal.compact(remaining); err != nil {
		q.logger.Error("sparse journal compact failed", "error", err)
	}
}

// Stats reports the current queue depth and parked-job count.
type Stats struct {
	Pending int
	Parked  int
}

func (q *SparseWriteQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Pending: q.pending.Len(), Parked: len(q.parked)}
}

// Stop signals the background goroutine to exit once it drains any job it
// is mid-batch on, then blocks until it has.
func (q *SparseWriteQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	<-q.doneCh
}

// Close stops the drain goroutine and closes the journal file handle.
func (q *SparseWriteQueue) Close() error {
	select {
	case <-q.doneCh:
	default:
		q.Stop()
	}
	return q.journal.close()
}
