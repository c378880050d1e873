package embed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder768_Embed_ReturnsCorrectDimensions(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	embedding := embedText(t, embedder, "func main() {}")
	assert.Len(t, embedding, Static768Dimensions)
	assert.Equal(t, 768, Static768Dimensions, "Static768Dimensions should be 768")
}

func TestStaticEmbedder768_Embed_VectorIsNormalized(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	embedding := embedText(t, embedder, "func main() {}")

	magnitude := vectorMagnitude(embedding)
	assert.InDelta(t, 1.0, magnitude, 0.001, "vector should be normalized to unit length")
}

func TestStaticEmbedder768_Embed_IsDeterministic(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	text := "func add(a, b int) int { return a + b }"

	emb1 := embedText(t, embedder, text)
	emb2 := embedText(t, embedder, text)

	assert.Equal(t, emb1, emb2, "same text should produce identical vectors")
}

func TestStaticEmbedder768_Embed_DeterministicAcrossInstances(t *testing.T) {
	embedder1 := NewStaticEmbedder768()
	embedder2 := NewStaticEmbedder768()
	defer func() { _ = embedder1.Close() }()
	defer func() { _ = embedder2.Close() }()

	text := "func getUserById(id string) (*User, error)"

	emb1 := embedText(t, embedder1, text)
	emb2 := embedText(t, embedder2, text)

	assert.Equal(t, emb1, emb2, "same text should produce identical vectors across instances")
}

func TestStaticEmbedder768_SimilarCode_HasHigherSimilarity(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	add := "func add(a, b int) int { return a + b }"
	sum := "func sum(x, y int) int { return x + y }"
	repository := "class UserRepository { findById() }"

	addEmb := embedText(t, embedder, add)
	sumEmb := embedText(t, embedder, sum)
	repoEmb := embedText(t, embedder, repository)

	addSumSim := cosineSimilarity(addEmb, sumEmb)
	addRepoSim := cosineSimilarity(addEmb, repoEmb)

	assert.Greater(t, addSumSim, addRepoSim,
		"similar code should have higher similarity (add/sum: %.4f) than different code (add/repo: %.4f)",
		addSumSim, addRepoSim)
}

func TestStaticEmbedder768_ModelName_ReturnsStatic768(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, "static768", embedder.ModelName())
}

func TestStaticEmbedder768_Dimensions_Returns768(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, 768, embedder.Dimensions())
}

func TestStaticEmbedder768_Embed_EmptyInput_ReturnsZeroVector(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	embedding := embedText(t, embedder, "")
	assert.Len(t, embedding, Static768Dimensions)

	for i, v := range embedding {
		assert.Equal(t, float32(0), v, "element %d should be zero", i)
	}
}

func TestStaticEmbedder768_Embed_WhitespaceOnly_ReturnsZeroVector(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	embedding := embedText(t, embedder, "   \t\n  ")
	assert.Len(t, embedding, Static768Dimensions)

	for _, v := range embedding {
		assert.Equal(t, float32(0), v)
	}
}

func TestStaticEmbedder768_ImplementsEmbedderInterface(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	var _ Embedder = embedder
}

func TestStaticEmbedder768_Embed_ReturnsCorrectCount(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	texts := []string{"func add()", "func sub()", "class User"}

	embeddings, err := embedder.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, embeddings, 3)

	for i, emb := range embeddings {
		assert.Len(t, emb, Static768Dimensions, "embedding %d should have 768 dimensions", i)
	}
}

func TestStaticEmbedder768_Embed_EmptyList_ReturnsEmpty(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	embeddings, err := embedder.Embed(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, embeddings)
}

func TestStaticEmbedder768_Embed_HandlesEmptyStringsInBatch(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	texts := []string{
		"func add(a, b int) int { return a + b }",
		"", // empty string
		"func multiply(a, b int) int { return a * b }",
	}

	embeddings, err := embedder.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, embeddings, 3)

	for _, v := range embeddings[1] {
		assert.Equal(t, float32(0), v)
	}
}

func TestStaticEmbedder768_SparseEncode_ReturnsUnsupported(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	_, err := embedder.SparseEncode(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, ErrSparseNotSupported)
}

func TestStaticEmbedder768_Embed_AfterClose_ReturnsError(t *testing.T) {
	embedder := NewStaticEmbedder768()
	_ = embedder.Close()

	_, err := embedder.Embed(context.Background(), []string{"test"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestStaticEmbedder768_Available_AfterClose_ReturnsFalse(t *testing.T) {
	embedder := NewStaticEmbedder768()
	_ = embedder.Close()

	available := embedder.Available(context.Background())
	assert.False(t, available)
}

func TestStaticEmbedder768_Close_IsIdempotent(t *testing.T) {
	embedder := NewStaticEmbedder768()

	err1 := embedder.Close()
	err2 := embedder.Close()
	err3 := embedder.Close()

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.NoError(t, err3)
}

func TestStaticEmbedder768_Performance(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	texts := make([]string, 1000)
	for i := range texts {
		texts[i] = "func test" + string(rune('A'+i%26)) + "() { return i + 1 }"
	}

	start := time.Now()
	_, err := embedder.Embed(context.Background(), texts)
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 1*time.Second,
		"embedding 1000 texts should take < 1s (took %v)", elapsed)
}

func TestStaticEmbedder768_Available_TrueEvenWithCancelledContext(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	available := embedder.Available(ctx)

	assert.True(t, available, "static768 embedder should be available even with cancelled context")
}

func TestStaticEmbedder768_CamelCase_Tokenization(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	camelEmb := embedText(t, embedder, "getUserById")
	spaceEmb := embedText(t, embedder, "get user by id")

	similarity := cosineSimilarity(camelEmb, spaceEmb)
	assert.Greater(t, similarity, float64(0.3),
		"camelCase should tokenize similarly to space-separated (similarity: %.4f)", similarity)
}

func TestStaticEmbedder768_SnakeCase_Tokenization(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	snakeEmb := embedText(t, embedder, "get_user_by_id")
	spaceEmb := embedText(t, embedder, "get user by id")

	similarity := cosineSimilarity(snakeEmb, spaceEmb)
	assert.Greater(t, similarity, float64(0.3),
		"snake_case should tokenize similarly to space-separated (similarity: %.4f)", similarity)
}

func TestStaticEmbedder768_Embed_UnicodeText_NoError(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	texts := []string{
		"func 日本語() {}",
		"// Комментарий на русском",
		"const emoji = '🚀'",
	}

	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			embedding := embedText(t, embedder, text)
			assert.Len(t, embedding, Static768Dimensions)
		})
	}
}

func TestStaticEmbedder768_Embed_LongText_NoError(t *testing.T) {
	embedder := NewStaticEmbedder768()
	defer func() { _ = embedder.Close() }()

	longText := ""
	for i := 0; i < 10000; i++ {
		longText += "word "
	}

	embedding := embedText(t, embedder, longText)
	assert.Len(t, embedding, Static768Dimensions)
	assert.InDelta(t, 1.0, vectorMagnitude(embedding), 0.001)
}
