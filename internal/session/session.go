package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	searcherrors "github.com/Aman-CERP/codesearch/internal/errors"
	"github.com/Aman-CERP/codesearch/internal/pipeline"
	"github.com/Aman-CERP/codesearch/internal/search"
	"github.com/Aman-CERP/codesearch/internal/storemgr"
)

// state is the connection lifecycle: HANDSHAKE -> READY -> CLOSING, with
// CLOSED reachable from any state once the transport dies.
type state int32

const (
	stateHandshake state = iota
	stateReady
	stateClosing
	stateClosed
)

// outboxSize bounds how many server messages can be queued for a
// connection's single writer goroutine before a slow client starts
// blocking senders.
const outboxSize = 64

// Session is one duplex streaming connection bound to a single store: it
// decodes client frames, dispatches file/search/delete/stats/ping
// messages, and serializes every reply back through one writer goroutine
// so concurrent handlers never interleave writes on the wire.
type Session struct {
	id    string
	store string
	conn  net.Conn
	log   *slog.Logger

	pipeline *pipeline.Pipeline
	stores   *storemgr.Manager
	engine   func(ctx context.Context) (*search.Engine, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state state
	seen  map[string]struct{}

	outbox  chan ServerMessage
	batcher *fileBatcher
}

func newConnID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func newSession(parent context.Context, conn net.Conn, store string, pl *pipeline.Pipeline, stores *storemgr.Manager, engine func(context.Context) (*search.Engine, error), batchSize int, batchIdle time.Duration, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:       newConnID(),
		store:    store,
		conn:     conn,
		pipeline: pl,
		stores:   stores,
		engine:   engine,
		ctx:      ctx,
		cancel:   cancel,
		seen:     make(map[string]struct{}),
		outbox:   make(chan ServerMessage, outboxSize),
	}
	s.log = log.With("conn_id", s.id, "store", store)
	s.batcher = newFileBatcher(batchSize, batchIdle, s.flushBatch)
	return s
}

// serve runs the connection until the transport closes or ctx is done. It
// owns conn and closes it before returning.
func (s *Session) serve() {
	defer s.teardown()

	go s.writeLoop()

	decoder := json.NewDecoder(s.conn)
	for {
		var msg ClientMessage
		if err := decoder.Decode(&msg); err != nil {
			return
		}

		s.mu.Lock()
		if s.state == stateHandshake {
			s.state = stateReady
			s.mu.Unlock()
			s.send(ServerMessage{Type: TypeAck, ConnID: s.id, Store: s.store})
		} else {
			s.mu.Unlock()
		}

		s.dispatch(msg)
	}
}

func (s *Session) teardown() {
	s.mu.Lock()
	s.state = stateClosing
	s.mu.Unlock()

	s.batcher.Stop()
	s.cancel()
	_ = s.conn.Close()

	// conn is now closed, so writeLoop's next Encode fails and it exits on
	// its own; the outbox channel is deliberately never closed, since a
	// concurrently-running handler could still be selecting on a send to
	// it and closing here would race a send against a close.
	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()
}

// writeLoop is the single goroutine allowed to write to s.conn, so replies
// to concurrently-handled requests never interleave mid-frame.
func (s *Session) writeLoop() {
	encoder := json.NewEncoder(s.conn)
	for {
		select {
		case msg := <-s.outbox:
			if err := encoder.Encode(msg); err != nil {
				s.log.Debug("write failed, connection likely closed", "error", err)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) send(msg ServerMessage) {
	select {
	case s.outbox <- msg:
	case <-s.ctx.Done():
	}
}

func (s *Session) sendError(reqID string, err error) {
	wire := searcherrors.ToWire(err)
	var id *string
	if reqID != "" {
		id = &reqID
	}
	s.send(ServerMessage{Type: TypeError, ReqID: id, Code: wire.Code, Message: wire.Message})
}

// dispatch routes one decoded client frame to its handler. file messages
// are fire-and-forget; search/delete/stats get exactly one reply tagged
// with the request's req_id; ping gets exactly one pong.
func (s *Session) dispatch(msg ClientMessage) {
	switch msg.Type {
	case TypeFile:
		s.batcher.Add(pipeline.FileInput{Path: msg.Path, Content: []byte(msg.Content)})

	case TypePing:
		s.send(ServerMessage{Type: TypePong})

	case TypeSearch:
		if !s.claimReqID(msg.ReqID) {
			s.sendError(msg.ReqID, searcherrors.New(searcherrors.KindDuplicateReqID, "req_id already used on this connection", nil))
			return
		}
		go s.handleSearch(msg)

	case TypeDelete:
		if !s.claimReqID(msg.ReqID) {
			s.sendError(msg.ReqID, searcherrors.New(searcherrors.KindDuplicateReqID, "req_id already used on this connection", nil))
			return
		}
		go s.handleDelete(msg)

	case TypeStats:
		if !s.claimReqID(msg.ReqID) {
			s.sendError(msg.ReqID, searcherrors.New(searcherrors.KindDuplicateReqID, "req_id already used on this connection", nil))
			return
		}
		go s.handleStats(msg)

	default:
		s.sendError(msg.ReqID, searcherrors.New(searcherrors.KindValidation, "unknown message type: "+msg.Type, nil))
	}
}

// claimReqID records reqID as used and reports whether it was unused
// before this call. A req_id is remembered for the lifetime of the
// connection, not just while in flight, so a duplicate sent after the
// first reply still resolves to duplicate_req_id.
func (s *Session) claimReqID(reqID string) bool {
	if reqID == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[reqID]; ok {
		return false
	}
	s.seen[reqID] = struct{}{}
	return true
}

func (s *Session) handleSearch(msg ClientMessage) {
	start := time.Now()
	eng, err := s.engine(s.ctx)
	if err != nil {
		s.sendError(msg.ReqID, err)
		return
	}

	opts := search.DefaultOptions()
	if msg.TopK > 0 {
		opts.TopK = msg.TopK
	}
	if msg.EnableReranking != nil {
		opts.EnableReranking = *msg.EnableReranking
	}
	if msg.IncludeContent != nil {
		opts.IncludeContent = *msg.IncludeContent
	}
	if msg.Filters != nil {
		opts.Filter = search.Filter{PathPrefix: msg.Filters.PathPrefix, Languages: msg.Filters.Languages}
	}

	results, err := eng.Search(s.ctx, msg.Query, opts)
	if err != nil {
		s.sendError(msg.ReqID, err)
		return
	}

	wireResults := make([]WireResult, len(results))
	for i, r := range results {
		wireResults[i] = WireResult{
			DocID:      r.ChunkID,
			Path:       r.Path,
			Language:   r.Language,
			StartLine:  r.StartLine,
			EndLine:    r.EndLine,
			Content:    r.Content,
			Symbols:    r.Symbols,
			FinalScore: r.Score,
		}
	}

	reqID := msg.ReqID
	s.send(ServerMessage{
		Type:         TypeResults,
		ReqID:        &reqID,
		Query:        msg.Query,
		Results:      wireResults,
		Total:        len(wireResults),
		SearchTimeMs: time.Since(start).Milliseconds(),
	})
}

func (s *Session) handleDelete(msg ClientMessage) {
	result, err := s.pipeline.DeleteFiles(s.ctx, s.store, msg.Paths, msg.PathPrefix)
	if err != nil {
		s.sendError(msg.ReqID, err)
		return
	}
	reqID := msg.ReqID
	s.send(ServerMessage{
		Type:          TypeDeleted,
		ReqID:         &reqID,
		SparseDeleted: result.SparseDeleted,
		DenseDeleted:  result.DenseDeleted,
	})
}

func (s *Session) handleStats(msg ClientMessage) {
	if _, err := s.stores.Ensure(s.ctx, s.store); err != nil {
		s.sendError(msg.ReqID, err)
		return
	}
	stats, err := s.stores.Stats(s.store)
	if err != nil {
		s.sendError(msg.ReqID, err)
		return
	}
	reqID := msg.ReqID
	var lastUpdated string
	if !stats.LastIndexed.IsZero() {
		lastUpdated = stats.LastIndexed.UTC().Format(time.RFC3339)
	}
	s.send(ServerMessage{
		Type:         TypeStatsResult,
		ReqID:        &reqID,
		TrackedFiles: stats.DocCount,
		TotalSize:    stats.TotalSize,
		LastUpdated:  lastUpdated,
	})
}

// flushBatch is the batcher's flush callback: it hands the accumulated
// files to the indexing pipeline and, when IndexFiles succeeds, acknowledges
// with exactly one indexed message, regardless of how many files were skipped
// internally. When IndexFiles fails the error is logged and no message is sent.
func (s *Session) flushBatch(files []pipeline.FileInput) {
	result, err := s.pipeline.IndexFiles(s.ctx, s.store, files, false)
	if err != nil {
		s.log.Warn("batch indexing failed", "error", err, "files", len(files))
		return
	}
	s.send(ServerMessage{
		Type:         TypeIndexed,
		ChunksQueued: result.ChunksQueued,
		FilesCount:   len(files),
		BatchID:      result.JobID,
	})
}
