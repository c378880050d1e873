package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/codesearch/internal/pipeline"
)

// Ingestor bridges a HybridWatcher to a pipeline, giving one store a second
// admission path alongside the streaming session's file messages: changes
// under root are pushed through the identical Pipeline.IndexFiles and
// DeleteFiles calls a session uses.
type Ingestor struct {
	watcher  *HybridWatcher
	root     string
	store    string
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// NewIngestor builds an Ingestor watching root and indexing into storeName.
func NewIngestor(root, storeName string, pl *pipeline.Pipeline, opts Options, log *slog.Logger) (*Ingestor, error) {
	if log == nil {
		log = slog.Default()
	}
	w, err := NewHybridWatcher(opts)
	if err != nil {
		return nil, err
	}
	return &Ingestor{
		watcher:  w,
		root:     root,
		store:    storeName,
		pipeline: pl,
		log:      log.With("component", "watcher_ingest", "store", storeName),
	}, nil
}

// Run starts the watcher and blocks, admitting batches of changes into the
// pipeline until ctx is cancelled or the watcher fails to start. A full
// reconciliation pass runs once at startup and again on every
// gitignore/config change, since those can silently retarget which files
// belong in the store without any individual file event firing for them.
func (ig *Ingestor) Run(ctx context.Context) error {
	if err := ig.reconcile(ctx); err != nil {
		ig.log.Warn("initial reconciliation failed", "error", err)
	}

	started := make(chan error, 1)
	go func() { started <- ig.watcher.Start(ctx, ig.root) }()

	for {
		select {
		case <-ctx.Done():
			_ = ig.watcher.Stop()
			return ctx.Err()
		case err := <-started:
			return err
		case batch, ok := <-ig.watcher.Events():
			if !ok {
				return nil
			}
			ig.applyBatch(ctx, batch)
		case err, ok := <-ig.watcher.Errors():
			if !ok {
				return nil
			}
			ig.log.Warn("watcher error", "error", err)
		}
	}
}

func (ig *Ingestor) applyBatch(ctx context.Context, batch []FileEvent) {
	var toIndex []pipeline.FileInput
	var toDelete []string
	needsReconcile := false

	for _, evt := range batch {
		switch evt.Operation {
		case OpGitignoreChange, OpConfigChange:
			needsReconcile = true
		case OpDelete:
			toDelete = append(toDelete, evt.Path)
		case OpRename:
			if evt.OldPath != "" {
				toDelete = append(toDelete, evt.OldPath)
			}
			if f, ok := ig.readFile(evt.Path, evt.IsDir); ok {
				toIndex = append(toIndex, f)
			}
		case OpCreate, OpModify:
			if f, ok := ig.readFile(evt.Path, evt.IsDir); ok {
				toIndex = append(toIndex, f)
			}
		}
	}

	if len(toIndex) > 0 {
		if _, err := ig.pipeline.IndexFiles(ctx, ig.store, toIndex, false); err != nil {
			ig.log.Warn("batch index failed", "error", err, "files", len(toIndex))
		}
	}
	if len(toDelete) > 0 {
		if _, err := ig.pipeline.DeleteFiles(ctx, ig.store, toDelete, ""); err != nil {
			ig.log.Warn("batch delete failed", "error", err, "files", len(toDelete))
		}
	}
	if needsReconcile {
		if err := ig.reconcile(ctx); err != nil {
			ig.log.Warn("reconciliation failed", "error", err)
		}
	}
}

// readFile loads relPath's current content for admission. A file that no
// longer exists or has grown into a directory by the time this runs is
// dropped silently: a later event will settle its final state.
func (ig *Ingestor) readFile(relPath string, isDir bool) (pipeline.FileInput, bool) {
	if isDir {
		return pipeline.FileInput{}, false
	}
	content, err := os.ReadFile(filepath.Join(ig.root, relPath))
	if err != nil {
		return pipeline.FileInput{}, false
	}
	return pipeline.FileInput{Path: relPath, Content: content}, true
}

// reconcile walks root, indexes every non-ignored file (cheap for files
// already up to date, since IndexFiles skips unchanged content) and then
// drops anything the tracker still has recorded that reconcile didn't see.
func (ig *Ingestor) reconcile(ctx context.Context) error {
	var files []pipeline.FileInput
	var paths []string

	err := filepath.WalkDir(ig.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(ig.root, path)
		if err != nil || relPath == "." {
			return nil
		}
		if ig.watcher.Ignores(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		paths = append(paths, relPath)
		files = append(files, pipeline.FileInput{Path: relPath, Content: content})
		return nil
	})
	if err != nil {
		return err
	}

	if len(files) > 0 {
		if _, err := ig.pipeline.IndexFiles(ctx, ig.store, files, false); err != nil {
			return err
		}
	}
	_, err = ig.pipeline.SyncDeleted(ctx, ig.store, paths)
	return err
}

// Stop stops the underlying watcher. Safe to call after Run has returned.
func (ig *Ingestor) Stop() error {
	return ig.watcher.Stop()
}
