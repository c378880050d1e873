// Package tracker implements per-store file change tracking: it records
// which paths have been indexed, under what content hash, so a re-index
// pass can tell created/modified/deleted/unchanged apart without
// re-chunking or re-embedding unchanged files.
package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	searcherrors "github.com/Aman-CERP/codesearch/internal/errors"
)

// hashLen is the length, in hex characters, of a content hash produced by
// this package. Snapshots written by older code may carry a full 64-char
// sha256 hex digest; CheckChanges accepts both lengths when comparing.
const hashLen = 16

// Entry is one tracked file's last-known state.
type Entry struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	ChunkCount  int       `json:"chunk_count"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// ChangeKind classifies how a path differs from the tracker's snapshot.
type ChangeKind int

const (
	ChangeNone ChangeKind = iota
	ChangeCreated
	ChangeModified
	ChangeDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	default:
		return "none"
	}
}

// Change describes one path's transition relative to the last snapshot.
type Change struct {
	Path string
	Kind ChangeKind
}

// Stats summarizes the current snapshot.
type Stats struct {
	FileCount  int `json:"file_count"`
	ChunkCount int `json:"chunk_count"`
}

// snapshot is the on-disk representation, keyed by path for O(1) lookups.
type snapshot struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

const snapshotVersion = 1

// Tracker tracks file state for a single store. It is safe for concurrent
// use; writes are serialized behind an in-process mutex and an on-disk
// flock so a crashed process never corrupts the snapshot.
type Tracker struct {
	path string // tracker.json path
	lock *flock.Flock

	mu   sync.RWMutex
	snap snapshot
}

// Load reads (or initializes) the tracker snapshot at <dir>/tracker.json.
func Load(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("create tracker dir: %w", err))
	}

	path := filepath.Join(dir, "tracker.json")
	t := &Tracker{
		path: path,
		lock: flock.New(path + ".lock"),
		snap: snapshot{Version: snapshotVersion, Entries: make(map[string]*Entry)},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("read tracker snapshot: %w", err))
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("parse tracker snapshot: %w", err))
	}
	if s.Entries == nil {
		s.Entries = make(map[string]*Entry)
	}
	t.snap = s
	return t, nil
}

// HashContent computes the content hash used for change detection. It is a
// truncated sha256 digest: full collision resistance is unnecessary for a
// change-detection cache and a short hash keeps the snapshot file small.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:hashLen]
}

// CheckChanges reports how path compares against the tracker's last known
// state, without mutating the snapshot. Track must be called afterward to
// record the new state once indexing succeeds.
func (t *Tracker) CheckChanges(path string, contentHash string) ChangeKind {
	t.mu.RLock()
	defer t.mu.RUnlock()

	prev, ok := t.snap.Entries[path]
	if !ok {
		return ChangeCreated
	}
	prevHash := prev.ContentHash
	if len(prevHash) > hashLen && len(contentHash) == hashLen {
		// A full digest from an older snapshot: its hex prefix is the short hash.
		prevHash = prevHash[:hashLen]
	}
	if prevHash == contentHash {
		return ChangeNone
	}
	return ChangeModified
}

// Track records (or updates) a path's state after successful indexing.
func (t *Tracker) Track(ctx context.Context, entry *Entry) error {
	if entry.IndexedAt.IsZero() {
		entry.IndexedAt = time.Now()
	}
	t.mu.Lock()
	t.snap.Entries[entry.Path] = entry
	t.mu.Unlock()
	return t.persist(ctx)
}

// Untrack removes a single path from the snapshot.
func (t *Tracker) Untrack(ctx context.Context, path string) error {
	t.mu.Lock()
	delete(t.snap.Entries, path)
	t.mu.Unlock()
	return t.persist(ctx)
}

// UntrackByPrefix removes every tracked path under a directory prefix, used
// when an entire directory is deleted or excluded. Returns the removed
// paths so callers can issue matching deletes against the sparse/dense
// stores.
func (t *Tracker) UntrackByPrefix(ctx context.Context, prefix string) ([]string, error) {
	prefix = ensureTrailingSlash(prefix)

	t.mu.Lock()
	var removed []string
	for p := range t.snap.Entries {
		if p == prefix || hasPrefixDir(p, prefix) {
			removed = append(removed, p)
		}
	}
	for _, p := range removed {
		delete(t.snap.Entries, p)
	}
	t.mu.Unlock()

	sort.Strings(removed)
	if len(removed) == 0 {
		return removed, nil
	}
	return removed, t.persist(ctx)
}

// FindDeleted returns tracked paths that are absent from currentPaths,
// i.e. files that existed in a previous scan but no longer exist on disk.
func (t *Tracker) FindDeleted(currentPaths map[string]struct{}) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var deleted []string
	for p := range t.snap.Entries {
		if _, ok := currentPaths[p]; !ok {
			deleted = append(deleted, p)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// List returns every tracked entry, sorted by path.
func (t *Tracker) List() []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]*Entry, 0, len(t.snap.Entries))
	for _, e := range t.snap.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// Get returns the tracked entry for path, if any.
func (t *Tracker) Get(path string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.snap.Entries[path]
	return e, ok
}

// Stats summarizes the current snapshot.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Stats{FileCount: len(t.snap.Entries)}
	for _, e := range t.snap.Entries {
		stats.ChunkCount += e.ChunkCount
	}
	return stats
}

// persist writes the snapshot to a temp file and atomically renames it
// into place, guarded by an on-disk flock so two processes sharing a data
// root never interleave writes.
func (t *Tracker) persist(ctx context.Context) error {
	if err := t.lock.Lock(); err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("lock tracker snapshot: %w", err))
	}
	defer t.lock.Unlock()

	t.mu.RLock()
	data, err := json.MarshalIndent(t.snap, "", "  ")
	t.mu.RUnlock()
	if err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("marshal tracker snapshot: %w", err))
	}

	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, ".tracker-*.json.tmp")
	if err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("create temp snapshot: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("write temp snapshot: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("sync temp snapshot: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("close temp snapshot: %w", err))
	}

	if err := os.Rename(tmpPath, t.path); err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("rename temp snapshot: %w", err))
	}
	return nil
}

func ensureTrailingSlash(p string) string {
	if p == "" || p[len(p)-1] == '/' {
		return p
	}
	return p + "/"
}

func hasPrefixDir(path, prefix string) bool {
	return len(path) > len(prefix) && path[:len(prefix)] == prefix
}
