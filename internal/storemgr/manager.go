// Package storemgr provisions and tracks the per-store resource triple
// (file tracker, sparse segment, vector collection) that backs one
// isolated search store. Creating a store is an all-or-nothing operation:
// if any of the three sub-resources can't be provisioned, the others are
// rolled back so a store never exists half-built.
package storemgr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	searcherrors "github.com/Aman-CERP/codesearch/internal/errors"
	"github.com/Aman-CERP/codesearch/internal/store"
	"github.com/Aman-CERP/codesearch/internal/tracker"
)

const (
	storesSubdir = "stores"
	sparseSubdir = "sparse"
	denseSubdir  = "dense"
	vectorFile   = "vectors.bin"
)

var storeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// Store is one provisioned, open store: its tracker, sparse index and
// vector store, plus the metadata and optional chunking override read
// from its directory.
type Store struct {
	Name      string
	Dir       string
	CreatedAt time.Time
	UpdatedAt time.Time

	Tracker  *tracker.Tracker
	Sparse   store.BM25Index
	Dense    store.VectorStore
	Chunking ChunkingOverride
}

// Stats summarizes one store's size and indexing state.
type Stats struct {
	DocCount    int
	ChunkCount  int
	TotalSize   int64
	LastIndexed time.Time
}

// Manager provisions, opens and tears down stores under a data root.
// Safe for concurrent use.
type Manager struct {
	root      string
	vectorCfg store.VectorStoreConfig
	bm25Cfg   store.BM25Config

	mu     sync.RWMutex
	stores map[string]*Store
}

// New constructs a Manager rooted at <dataRoot>/stores. vectorCfg supplies
// the dimension and HNSW parameters every store's vector collection is
// created with; bm25Cfg supplies the sparse segment's tokenizer settings.
func New(dataRoot string, vectorCfg store.VectorStoreConfig, bm25Cfg store.BM25Config) (*Manager, error) {
	root := filepath.Join(dataRoot, storesSubdir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("create stores root: %w", err))
	}
	return &Manager{
		root:      root,
		vectorCfg: vectorCfg,
		bm25Cfg:   bm25Cfg,
		stores:    make(map[string]*Store),
	}, nil
}

func (m *Manager) dirFor(name string) string {
	return filepath.Join(m.root, name)
}

// Ensure returns the named store: the already-open Store if one exists,
// one reopened from an on-disk meta.json left by a prior process, or a
// freshly provisioned one otherwise. Idempotent.
func (m *Manager) Ensure(ctx context.Context, name string) (*Store, error) {
	if s, ok := m.lookup(name); ok {
		return s, nil
	}

	if !storeNamePattern.MatchString(name) {
		return nil, searcherrors.New(searcherrors.KindValidation, fmt.Sprintf("invalid store name %q", name), nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[name]; ok {
		return s, nil
	}

	if _, err := os.Stat(filepath.Join(m.dirFor(name), metaFileName)); err == nil {
		s, err := m.open(name)
		if err != nil {
			return nil, err
		}
		m.stores[name] = s
		return s, nil
	}

	return m.createLocked(name)
}

// Create provisions a new store, failing if one with this name already
// exists (open or on disk). Use Ensure for get-or-create semantics.
func (m *Manager) Create(ctx context.Context, name string) (*Store, error) {
	if !storeNamePattern.MatchString(name) {
		return nil, searcherrors.New(searcherrors.KindValidation, fmt.Sprintf("invalid store name %q", name), nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stores[name]; ok {
		return nil, searcherrors.New(searcherrors.KindAlreadyExists, fmt.Sprintf("store %q already exists", name), nil)
	}
	if _, err := os.Stat(filepath.Join(m.dirFor(name), metaFileName)); err == nil {
		return nil, searcherrors.New(searcherrors.KindAlreadyExists, fmt.Sprintf("store %q already exists", name), nil)
	}

	return m.createLocked(name)
}

// createLocked provisions a new store's tracker file, sparse segment and
// vector collection, all under <root>/<name>/. m.mu must already be held.
// If any sub-resource fails to provision, every already-created one is
// torn down and the store directory removed, so no half-provisioned store
// is left on disk.
func (m *Manager) createLocked(name string) (*Store, error) {
	dir := m.dirFor(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("create store dir: %w", err))
	}

	rollback := func() {
		os.RemoveAll(dir)
	}

	now := time.Now()
	if err := writeMeta(dir, storeMeta{Name: name, CreatedAt: now, UpdatedAt: now}); err != nil {
		rollback()
		return nil, err
	}

	trk, err := tracker.Load(dir)
	if err != nil {
		rollback()
		return nil, err
	}

	sparseIdx, err := store.NewBleveBM25Index(filepath.Join(dir, sparseSubdir), m.bm25Cfg)
	if err != nil {
		rollback()
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("create sparse segment: %w", err))
	}

	denseStore, err := store.NewHNSWStore(m.vectorCfg)
	if err != nil {
		sparseIdx.Close()
		rollback()
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("create vector collection: %w", err))
	}
	denseDir := filepath.Join(dir, denseSubdir)
	if err := os.MkdirAll(denseDir, 0o755); err != nil {
		denseStore.Close()
		sparseIdx.Close()
		rollback()
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("create dense dir: %w", err))
	}
	if err := denseStore.Save(filepath.Join(denseDir, vectorFile)); err != nil {
		denseStore.Close()
		sparseIdx.Close()
		rollback()
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("persist vector collection: %w", err))
	}

	s := &Store{
		Name:      name,
		Dir:       dir,
		CreatedAt: now,
		UpdatedAt: now,
		Tracker:   trk,
		Sparse:    sparseIdx,
		Dense:     denseStore,
	}
	m.stores[name] = s
	return s, nil
}

// open loads an already-provisioned store from disk without creating
// anything.
func (m *Manager) open(name string) (*Store, error) {
	dir := m.dirFor(name)
	meta, err := readMeta(dir)
	if err != nil {
		return nil, searcherrors.New(searcherrors.KindNotFound, fmt.Sprintf("store %q not found", name), err)
	}

	trk, err := tracker.Load(dir)
	if err != nil {
		return nil, err
	}

	sparseIdx, err := store.NewBleveBM25Index(filepath.Join(dir, sparseSubdir), m.bm25Cfg)
	if err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("open sparse segment: %w", err))
	}

	denseStore, err := store.NewHNSWStore(m.vectorCfg)
	if err != nil {
		sparseIdx.Close()
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("open vector collection: %w", err))
	}
	vectorPath := filepath.Join(dir, denseSubdir, vectorFile)
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		if err := denseStore.Load(vectorPath); err != nil {
			denseStore.Close()
			sparseIdx.Close()
			return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("load vector collection: %w", err))
		}
	}

	chunking, err := readChunkingOverride(dir)
	if err != nil {
		denseStore.Close()
		sparseIdx.Close()
		return nil, err
	}

	return &Store{
		Name:      name,
		Dir:       dir,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
		Tracker:   trk,
		Sparse:    sparseIdx,
		Dense:     denseStore,
		Chunking:  chunking,
	}, nil
}

func (m *Manager) lookup(name string) (*Store, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[name]
	return s, ok
}

// Delete closes and removes a store's backing resources entirely.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[name]
	if ok {
		if s.Sparse != nil {
			s.Sparse.Close()
		}
		if s.Dense != nil {
			s.Dense.Close()
		}
		delete(m.stores, name)
	}

	dir := m.dirFor(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return searcherrors.New(searcherrors.KindNotFound, fmt.Sprintf("store %q not found", name), nil)
	}
	if err := os.RemoveAll(dir); err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("remove store dir: %w", err))
	}
	return nil
}

// List returns every open store; the order is not guaranteed, so callers
// that need stable ordering should sort the result themselves.
func (m *Manager) List() []*Store {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	return out
}

// Stats reports size and recency for a store.
func (m *Manager) Stats(name string) (Stats, error) {
	s, ok := m.lookup(name)
	if !ok {
		return Stats{}, searcherrors.New(searcherrors.KindNotFound, fmt.Sprintf("store %q not found", name), nil)
	}

	trackerStats := s.Tracker.Stats()
	var totalSize int64
	if err := filepath.Walk(s.Dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		totalSize += info.Size()
		return nil
	}); err != nil {
		return Stats{}, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("walk store dir: %w", err))
	}

	var lastIndexed time.Time
	for _, e := range s.Tracker.List() {
		if e.IndexedAt.After(lastIndexed) {
			lastIndexed = e.IndexedAt
		}
	}

	return Stats{
		DocCount:    trackerStats.FileCount,
		ChunkCount:  trackerStats.ChunkCount,
		TotalSize:   totalSize,
		LastIndexed: lastIndexed,
	}, nil
}

// Touch bumps a store's updated_at timestamp, persisting it to meta.json.
func (m *Manager) Touch(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[name]
	if !ok {
		return searcherrors.New(searcherrors.KindNotFound, fmt.Sprintf("store %q not found", name), nil)
	}

	s.UpdatedAt = time.Now()
	return writeMeta(s.Dir, storeMeta{Name: s.Name, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt})
}

// Close shuts down every open store's sub-resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, s := range m.stores {
		if err := s.Sparse.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := s.Dense.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
