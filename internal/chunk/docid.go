package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// assignDocIDs stamps ChunkIndex and the content-addressable doc_id onto
// every chunk produced for one file, in the order they were produced.
// chunk_index is part of the hash input so two chunks in the same file
// that happen to share identical content (e.g. repeated boilerplate) still
// get distinct ids.
func assignDocIDs(path string, chunks []*Chunk) {
	for i, c := range chunks {
		c.ChunkIndex = i
		c.ID = docID(path, i, c.RawContent)
	}
}

// docID computes doc_id = stable_hash(path + ":" + chunk_index + ":" +
// content_hash).
func docID(path string, chunkIndex int, content string) string {
	contentHash := sha256.Sum256([]byte(content))
	contentHashStr := hex.EncodeToString(contentHash[:])[:16]

	input := fmt.Sprintf("%s:%d:%s", path, chunkIndex, contentHashStr)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// estimateTokens estimates the number of tokens in content.
func estimateTokens(content string) int {
	return len(content) / TokensPerChar
}

// combineContextAndContent combines context and raw content into full content.
func combineContextAndContent(context, rawContent string) string {
	if context == "" {
		return rawContent
	}
	return context + "\n\n" + rawContent
}
