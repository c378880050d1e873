package storemgr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	searcherrors "github.com/Aman-CERP/codesearch/internal/errors"
)

const (
	metaFileName      = "meta.json"
	chunkOverrideFile = "meta.yaml"
)

// storeMeta is the on-disk record of a store's identity and timestamps,
// persisted at <storeDir>/meta.json.
type storeMeta struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChunkingOverride optionally overrides the pipeline's default chunk size
// and overlap for one store, read from <storeDir>/meta.yaml. Either field
// left at zero falls back to the chunker's own default.
type ChunkingOverride struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// readMeta loads meta.json from dir.
func readMeta(dir string) (storeMeta, error) {
	var m storeMeta
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return m, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("read %s: %w", metaFileName, err))
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("parse %s: %w", metaFileName, err))
	}
	return m, nil
}

// writeMeta atomically persists m to <dir>/meta.json: write to a temp file
// in the same directory, fsync, then rename into place, so a crash mid-
// write never leaves a truncated or torn meta.json behind.
func writeMeta(dir string, m storeMeta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("marshal %s: %w", metaFileName, err))
	}

	tmp, err := os.CreateTemp(dir, ".meta-*.json.tmp")
	if err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("create temp meta: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("write temp meta: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("sync temp meta: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("close temp meta: %w", err))
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, metaFileName)); err != nil {
		return searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("rename meta into place: %w", err))
	}
	return nil
}

// readChunkingOverride loads <dir>/meta.yaml if present. A missing file is
// not an error: it returns the zero ChunkingOverride, which callers treat
// as "use the chunker's defaults".
func readChunkingOverride(dir string) (ChunkingOverride, error) {
	var override ChunkingOverride
	data, err := os.ReadFile(filepath.Join(dir, chunkOverrideFile))
	if err != nil {
		if os.IsNotExist(err) {
			return override, nil
		}
		return override, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("read %s: %w", chunkOverrideFile, err))
	}
	if err := yaml.Unmarshal(data, &override); err != nil {
		return override, searcherrors.Wrap(searcherrors.KindInternal, fmt.Errorf("parse %s: %w", chunkOverrideFile, err))
	}
	return override, nil
}
