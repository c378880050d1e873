package tracker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckChangesDetectsCreatedModifiedNone(t *testing.T) {
	dir := t.TempDir()
	tr, err := Load(dir)
	require.NoError(t, err)

	hash1 := HashContent([]byte("hello"))
	assert.Equal(t, ChangeCreated, tr.CheckChanges("a.go", hash1))

	require.NoError(t, tr.Track(context.Background(), &Entry{Path: "a.go", ContentHash: hash1, ChunkCount: 2}))
	assert.Equal(t, ChangeNone, tr.CheckChanges("a.go", hash1))

	hash2 := HashContent([]byte("world"))
	assert.Equal(t, ChangeModified, tr.CheckChanges("a.go", hash2))
}

func TestTrackPersistsAcrossLoad(t *testing.T) {
	dir := t.TempDir()
	tr, err := Load(dir)
	require.NoError(t, err)

	require.NoError(t, tr.Track(context.Background(), &Entry{Path: "a.go", ContentHash: "abc", ChunkCount: 3}))

	reloaded, err := Load(dir)
	require.NoError(t, err)
	entry, ok := reloaded.Get("a.go")
	require.True(t, ok)
	assert.Equal(t, "abc", entry.ContentHash)
	assert.Equal(t, 3, entry.ChunkCount)
}

func TestUntrackByPrefixRemovesMatchingPaths(t *testing.T) {
	dir := t.TempDir()
	tr, err := Load(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tr.Track(ctx, &Entry{Path: "pkg/a.go", ContentHash: "1"}))
	require.NoError(t, tr.Track(ctx, &Entry{Path: "pkg/b.go", ContentHash: "2"}))
	require.NoError(t, tr.Track(ctx, &Entry{Path: "other/c.go", ContentHash: "3"}))

	removed, err := tr.UntrackByPrefix(ctx, "pkg")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pkg/a.go", "pkg/b.go"}, removed)

	_, ok := tr.Get("other/c.go")
	assert.True(t, ok)
}

func TestFindDeletedReportsMissingPaths(t *testing.T) {
	dir := t.TempDir()
	tr, err := Load(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tr.Track(ctx, &Entry{Path: "a.go", ContentHash: "1"}))
	require.NoError(t, tr.Track(ctx, &Entry{Path: "b.go", ContentHash: "2"}))

	deleted := tr.FindDeleted(map[string]struct{}{"a.go": {}})
	assert.Equal(t, []string{"b.go"}, deleted)
}

func TestStatsCountsFilesAndChunks(t *testing.T) {
	dir := t.TempDir()
	tr, err := Load(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tr.Track(ctx, &Entry{Path: "a.go", ContentHash: "1", ChunkCount: 2}))
	require.NoError(t, tr.Track(ctx, &Entry{Path: "b.go", ContentHash: "2", ChunkCount: 5}))

	stats := tr.Stats()
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, 7, stats.ChunkCount)
}

func TestLoadToleratesMissingSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	tr, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, tr.List())
	assert.NoFileExists(t, filepath.Join(dir, "tracker.json"))
}
