package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesearch/internal/pipeline"
	"github.com/Aman-CERP/codesearch/internal/storemgr"
	"github.com/Aman-CERP/codesearch/internal/store"
)

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dim)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return out, nil
}

func testIngestor(t *testing.T, root string) (*Ingestor, *storemgr.Manager) {
	t.Helper()
	dataDir := t.TempDir()
	mgr, err := storemgr.New(dataDir, store.DefaultVectorStoreConfig(8), store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	pl := pipeline.New(dataDir, mgr, &fakeEmbedder{dim: 8}, pipeline.DefaultConfig(), nil)
	t.Cleanup(func() { _ = pl.Close() })

	opts := Options{DebounceWindow: 30 * time.Millisecond, EventBufferSize: 100}.WithDefaults()
	ig, err := NewIngestor(root, "demo", pl, opts, nil)
	require.NoError(t, err)
	return ig, mgr
}

func TestIngestor_ReconcileIndexesExistingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))

	ig, mgr := testIngestor(t, root)
	require.NoError(t, ig.reconcile(context.Background()))

	stats, err := mgr.Stats("demo")
	require.NoError(t, err)
	require.Equal(t, 1, stats.DocCount)
}

func TestIngestor_ReconcileSkipsIgnoredFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("ignored.go\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.go"), []byte("package a\n\nfunc B() {}\n"), 0o644))

	ig, mgr := testIngestor(t, root)
	ig.watcher.rootPath = root
	ig.watcher.loadGitignore()
	require.NoError(t, ig.reconcile(context.Background()))

	stats, err := mgr.Stats("demo")
	require.NoError(t, err)
	require.Equal(t, 1, stats.DocCount)
}

func TestIngestor_RunIndexesCreatedFileAndDeletesRemoved(t *testing.T) {
	root := t.TempDir()
	ig, mgr := testIngestor(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ig.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)

	filePath := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(filePath, []byte("package a\n\nfunc B() {}\n"), 0o644))

	require.Eventually(t, func() bool {
		stats, err := mgr.Stats("demo")
		return err == nil && stats.DocCount == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filePath))

	require.Eventually(t, func() bool {
		stats, err := mgr.Stats("demo")
		return err == nil && stats.DocCount == 0
	}, 2*time.Second, 20*time.Millisecond)
}
