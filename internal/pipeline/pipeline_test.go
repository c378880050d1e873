package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func testPipeline(t *testing.T) (*Pipeline, *storemgr.Manager) {
	t.Helper()
	dataDir := t.TempDir()
	mgr, err := storemgr.New(dataDir, store.DefaultVectorStoreConfig(8), store.DefaultBM25Config())
	require.NoError(t, err)

	p := New(dataDir, mgr, &fakeEmbedder{dim: 8}, DefaultConfig(), nil)
	t.Cleanup(func() {
		_ = p.Close()
		_ = mgr.Close()
	})
	return p, mgr
}

func goFile(path, body string) FileInput {
	return FileInput{Path: path, Content: []byte(body)}
}

const sampleGoFile = `package sample

func Greet(name string) string {
	return "hello " + name
}

func Farewell(name string) string {
	return "bye " + name
}
`

func TestIndexFiles_AcceptsNewCodeFileAndQueuesChunks(t *testing.T) {
	p, _ := testPipeline(t)

	result, err := p.IndexFiles(context.Background(), "proj", []FileInput{
		goFile("pkg/sample.go", sampleGoFile),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAccepted)
	assert.Greater(t, result.ChunksQueued, 0)
	assert.Empty(t, result.Skipped)
}

func TestIndexFiles_SkipsBinaryContent(t *testing.T) {
	p, _ := testPipeline(t)

	result, err := p.IndexFiles(context.Background(), "proj", []FileInput{
		{Path: "bin/data", Content: []byte("abc\x00def")},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesAccepted)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, SkipBinary, result.Skipped[0].Reason)
}

func TestIndexFiles_SkipsOversizeContent(t *testing.T) {
	p, _ := testPipeline(t)

	huge := make([]byte, MaxFileSize+1)
	result, err := p.IndexFiles(context.Background(), "proj", []FileInput{
		{Path: "big.go", Content: huge},
	}, false)
	require.NoError(t, err)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, SkipTooLarge, result.Skipped[0].Reason)
}

func TestIndexFiles_SkipsUnsupportedContentType(t *testing.T) {
	p, _ := testPipeline(t)

	result, err := p.IndexFiles(context.Background(), "proj", []FileInput{
		goFile("config/settings.json", `{"a":1}`),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesAccepted)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, SkipEmpty, result.Skipped[0].Reason)
}

func TestIndexFiles_UnchangedFileSkippedOnSecondPass(t *testing.T) {
	p, _ := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexFiles(ctx, "proj", []FileInput{goFile("pkg/sample.go", sampleGoFile)}, false)
	require.NoError(t, err)

	result, err := p.IndexFiles(ctx, "proj", []FileInput{goFile("pkg/sample.go", sampleGoFile)}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesAccepted)
	assert.Equal(t, 1, result.SkippedChanged)
}

func TestIndexFiles_ForceReindexesUnchangedFile(t *testing.T) {
	p, _ := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexFiles(ctx, "proj", []FileInput{goFile("pkg/sample.go", sampleGoFile)}, false)
	require.NoError(t, err)

	result, err := p.IndexFiles(ctx, "proj", []FileInput{goFile("pkg/sample.go", sampleGoFile)}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAccepted)
}

func TestIndexFiles_NormalizesBackslashPaths(t *testing.T) {
	p, _ := testPipeline(t)

	result, err := p.IndexFiles(context.Background(), "proj", []FileInput{
		goFile(`pkg\windows.go`, sampleGoFile),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAccepted)
}

func TestDeleteFiles_ByExplicitPaths(t *testing.T) {
	p, _ := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexFiles(ctx, "proj", []FileInput{goFile("pkg/sample.go", sampleGoFile)}, false)
	require.NoError(t, err)

	del, err := p.DeleteFiles(ctx, "proj", []string{"pkg/sample.go"}, "")
	require.NoError(t, err)
	assert.Greater(t, del.SparseDeleted, 0)
	assert.Greater(t, del.DenseDeleted, 0)
}

func TestDeleteFiles_ByPrefix(t *testing.T) {
	p, _ := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexFiles(ctx, "proj", []FileInput{
		goFile("pkg/a.go", sampleGoFile),
		goFile("pkg/b.go", sampleGoFile),
	}, false)
	require.NoError(t, err)

	del, err := p.DeleteFiles(ctx, "proj", nil, "pkg/")
	require.NoError(t, err)
	assert.Greater(t, del.SparseDeleted, 0)
	assert.Greater(t, del.DenseDeleted, 0)
}

func TestReindex_ClearsThenReaccepts(t *testing.T) {
	p, _ := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexFiles(ctx, "proj", []FileInput{goFile("pkg/a.go", sampleGoFile)}, false)
	require.NoError(t, err)

	result, err := p.Reindex(ctx, "proj", []FileInput{goFile("pkg/a.go", sampleGoFile)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAccepted)
}

func TestSyncDeleted_RemovesPathsMissingFromCurrentSet(t *testing.T) {
	p, _ := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexFiles(ctx, "proj", []FileInput{
		goFile("pkg/a.go", sampleGoFile),
		goFile("pkg/b.go", sampleGoFile),
	}, false)
	require.NoError(t, err)

	sync, err := p.SyncDeleted(ctx, "proj", []string{"pkg/a.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/b.go"}, sync.Deleted)
}

func TestSyncDeleted_NoopWhenNothingMissing(t *testing.T) {
	p, _ := testPipeline(t)
	ctx := context.Background()

	_, err := p.IndexFiles(ctx, "proj", []FileInput{goFile("pkg/a.go", sampleGoFile)}, false)
	require.NoError(t, err)

	sync, err := p.SyncDeleted(ctx, "proj", []string{"pkg/a.go"})
	require.NoError(t, err)
	assert.Empty(t, sync.Deleted)
}
