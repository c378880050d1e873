package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUsesDefaultsWhenUnset(t *testing.T) {
	t.Setenv("MAX_FILE_SIZE_MB", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxFileSizeMB)
	assert.Equal(t, 32, cfg.EmbedBatchSize)
}

func TestLoadOverlaysEnv(t *testing.T) {
	t.Setenv("MAX_FILE_SIZE_MB", "25")
	t.Setenv("EMBED_WORKERS", "4")
	t.Setenv("DATA_ROOT", "/tmp/store-data")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxFileSizeMB)
	assert.Equal(t, 4, cfg.EmbedWorkers)
	assert.Equal(t, "/tmp/store-data", cfg.DataRoot)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidInt(t *testing.T) {
	t.Setenv("EMBED_QUEUE_MAX", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}
