package storemgr

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMeta_ThenReadMeta_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().Truncate(time.Second)
	m := storeMeta{Name: "roundtrip", CreatedAt: now, UpdatedAt: now}

	require.NoError(t, writeMeta(dir, m))

	got, err := readMeta(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
}

func TestWriteMeta_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeMeta(dir, storeMeta{Name: "x"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, metaFileName, entries[0].Name())
}

func TestReadChunkingOverride_MissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	override, err := readChunkingOverride(dir)
	require.NoError(t, err)
	assert.Zero(t, override)
}

func TestReadChunkingOverride_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := "chunk_size: 256\nchunk_overlap: 32\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, chunkOverrideFile), []byte(content), 0o644))

	override, err := readChunkingOverride(dir)
	require.NoError(t, err)
	assert.Equal(t, 256, override.ChunkSize)
	assert.Equal(t, 32, override.ChunkOverlap)
}
