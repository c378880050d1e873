package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunkerSplitsByHeader(t *testing.T) {
	c := NewMarkdownChunker()
	content := "# Title\n\nIntro text.\n\n## Section One\n\nBody one.\n\n## Section Two\n\nBody two.\n"

	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(content), Language: "markdown"})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Section One", chunks[1].Metadata["section_title"])
	assert.Equal(t, "Section Two", chunks[2].Metadata["section_title"])
}

func TestMarkdownChunkerExtractsFrontmatter(t *testing.T) {
	c := NewMarkdownChunker()
	content := "---\ntitle: Doc\n---\n\n# Title\n\nBody.\n"

	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(content), Language: "markdown"})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "frontmatter", chunks[0].Metadata["type"])
}

func TestMarkdownChunkerAssignsSequentialDocIDs(t *testing.T) {
	c := NewMarkdownChunker()
	content := "# A\n\nbody a\n\n# B\n\nbody b\n"

	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(content), Language: "markdown"})
	require.NoError(t, err)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.NotEmpty(t, ch.ID)
	}
}

func TestMarkdownChunkerFallsBackToParagraphsWithoutHeaders(t *testing.T) {
	c := NewMarkdownChunker()
	content := "Just a paragraph.\n\nAnother paragraph.\n"

	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "notes.md", Content: []byte(content), Language: "markdown"})
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestMarkdownChunkerSplitsLargeSection(t *testing.T) {
	var body strings.Builder
	body.WriteString("# Big\n\n")
	for i := 0; i < 200; i++ {
		body.WriteString("paragraph of reasonably long text goes here to pad tokens\n\n")
	}

	c := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{MaxChunkTokens: 100})
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "big.md", Content: []byte(body.String()), Language: "markdown"})
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
}

func TestMarkdownChunkerEmptyFile(t *testing.T) {
	c := NewMarkdownChunker()
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "empty.md", Content: []byte("   \n  "), Language: "markdown"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestCodeChunkerDispatchesMarkdownThroughAdmissionChecks(t *testing.T) {
	c := NewCodeChunker()
	defer c.Close()

	outcome, err := c.Chunk(context.Background(), &FileInput{Path: "readme.md", Content: []byte("# Title\n\nbody\n"), Language: "markdown"})
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.Chunks)
	assert.Equal(t, ContentTypeMarkdown, outcome.Chunks[0].ContentType)
}
