// Package session implements the duplex streaming protocol a client holds
// open against one store: file messages are batched and admitted through
// the indexing pipeline, search/delete/stats messages each get exactly one
// reply, and ping gets exactly one pong. See protocol.go for the wire
// schema.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	searcherrors "github.com/Aman-CERP/codesearch/internal/errors"
	"github.com/Aman-CERP/codesearch/internal/embed"
	"github.com/Aman-CERP/codesearch/internal/pipeline"
	"github.com/Aman-CERP/codesearch/internal/query"
	"github.com/Aman-CERP/codesearch/internal/search"
	"github.com/Aman-CERP/codesearch/internal/storemgr"
)

// Config controls batching thresholds shared across every connection a
// Manager serves. Zero values fall back to the package defaults.
type Config struct {
	BatchSize   int
	BatchIdleMs int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchIdleMs <= 0 {
		c.BatchIdleMs = DefaultBatchIdleMs
	}
	return c
}

// Manager accepts connections and binds each one to a store, lazily
// building and caching the search.Engine each store's connections share.
// A single listener only ever carries connections for the store it was
// handed at Serve time, matching the one-channel-per-(client,store)
// contract.
type Manager struct {
	pipeline *pipeline.Pipeline
	stores   *storemgr.Manager
	embedder embed.Embedder
	reranker embed.Reranker
	parser   *query.Parser
	cfg      Config
	log      *slog.Logger

	mu      sync.Mutex
	engines map[string]*search.Engine
	closed  bool
	wg      sync.WaitGroup
}

// NewManager builds a Manager. reranker and parser may be nil, matching
// search.New's own optional-dependency contract.
func NewManager(pl *pipeline.Pipeline, stores *storemgr.Manager, embedder embed.Embedder, reranker embed.Reranker, parser *query.Parser, cfg Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		pipeline: pl,
		stores:   stores,
		embedder: embedder,
		reranker: reranker,
		parser:   parser,
		cfg:      cfg.withDefaults(),
		log:      log.With("component", "session"),
		engines:  make(map[string]*search.Engine),
	}
}

// engineFor lazily builds and caches the search.Engine backing storeName's
// connections, reusing the store's already-open sparse and dense
// resources from the store manager.
func (m *Manager) engineFor(ctx context.Context, storeName string) (*search.Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eng, ok := m.engines[storeName]; ok {
		return eng, nil
	}

	st, err := m.stores.Ensure(ctx, storeName)
	if err != nil {
		return nil, err
	}
	eng, err := search.New(st.Sparse, st.Dense, m.embedder, m.reranker, m.parser, m.log)
	if err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("build engine for %q: %w", storeName, err))
	}
	m.engines[storeName] = eng
	return eng, nil
}

// Serve accepts connections from listener until ctx is cancelled or the
// listener closes, binding every accepted connection to storeName. It
// blocks until every in-flight connection has finished tearing down.
func (m *Manager) Serve(ctx context.Context, listener net.Listener, storeName string) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				m.wg.Wait()
				return ctx.Err()
			default:
				if errors.Is(err, net.ErrClosed) {
					m.wg.Wait()
					return err
				}
				m.log.Warn("accept failed", "store", storeName, "error", err)
				continue
			}
		}

		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			_ = conn.Close()
			continue
		}

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.handle(ctx, conn, storeName)
		}()
	}
}

func (m *Manager) handle(ctx context.Context, conn net.Conn, storeName string) {
	sess := newSession(ctx, conn, storeName, m.pipeline, m.stores,
		func(ctx context.Context) (*search.Engine, error) { return m.engineFor(ctx, storeName) },
		m.cfg.BatchSize, time.Duration(m.cfg.BatchIdleMs)*time.Millisecond, m.log)
	sess.serve()
}

// Close marks the manager as shutting down; connections already accepted
// keep running until their transport closes or their context is
// cancelled by the caller of Serve.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
