package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classify(t *testing.T, raw string) ParsedQuery {
	t.Helper()
	c := NewKeywordClassifier()
	parsed, err := c.Classify(context.Background(), raw)
	require.NoError(t, err)
	return parsed
}

func TestKeywordClassifier_Normalize_LowercasesAndCollapsesWhitespace(t *testing.T) {
	parsed := classify(t, "  Where   IS the   Auth   Handler ")
	assert.Equal(t, "where is the auth handler", parsed.Normalized)
}

func TestKeywordClassifier_Tokenize_DropsShortTokensAndStopWords(t *testing.T) {
	parsed := classify(t, "find a function to handle the http request")
	assert.NotContains(t, parsed.Keywords, "a")
	assert.NotContains(t, parsed.Keywords, "to")
	assert.NotContains(t, parsed.Keywords, "the")
	assert.Contains(t, parsed.Keywords, "function")
	assert.Contains(t, parsed.Keywords, "handle")
	assert.Contains(t, parsed.Keywords, "http")
	assert.Contains(t, parsed.Keywords, "request")
}

func TestKeywordClassifier_ActionIntent_Find(t *testing.T) {
	parsed := classify(t, "where is the retry logic")
	assert.Equal(t, IntentFind, parsed.ActionIntent)
}

func TestKeywordClassifier_ActionIntent_Explain(t *testing.T) {
	parsed := classify(t, "how does the embedding cache work")
	assert.Equal(t, IntentExplain, parsed.ActionIntent)
}

func TestKeywordClassifier_ActionIntent_List(t *testing.T) {
	parsed := classify(t, "list all api endpoints")
	assert.Equal(t, IntentList, parsed.ActionIntent)
}

func TestKeywordClassifier_ActionIntent_Fix(t *testing.T) {
	parsed := classify(t, "fix the flaky test")
	assert.Equal(t, IntentFix, parsed.ActionIntent)
}

func TestKeywordClassifier_ActionIntent_Compare(t *testing.T) {
	parsed := classify(t, "compare the two embedders")
	assert.Equal(t, IntentCompare, parsed.ActionIntent)
}

func TestKeywordClassifier_ActionIntent_LongestMatchWins(t *testing.T) {
	// "where is" (8 chars) should win over a shorter overlapping phrase.
	parsed := classify(t, "where is the config loader")
	assert.Equal(t, IntentFind, parsed.ActionIntent)
}

func TestKeywordClassifier_ActionIntent_UnknownWhenNoPatternMatches(t *testing.T) {
	parsed := classify(t, "qwerty zxcvbn")
	assert.Equal(t, IntentUnknown, parsed.ActionIntent)
}

func TestKeywordClassifier_TargetType_Function(t *testing.T) {
	parsed := classify(t, "where is the embed function defined")
	assert.Equal(t, TargetFunction, parsed.TargetType)
}

func TestKeywordClassifier_TargetType_Database(t *testing.T) {
	parsed := classify(t, "how does the database query execute")
	assert.Equal(t, TargetDatabase, parsed.TargetType)
}

func TestKeywordClassifier_TargetType_Auth(t *testing.T) {
	parsed := classify(t, "explain the auth token flow")
	assert.Equal(t, TargetAuth, parsed.TargetType)
}

func TestKeywordClassifier_TargetType_UnknownWhenNoNounMatches(t *testing.T) {
	parsed := classify(t, "where is the sparkle")
	assert.Equal(t, TargetUnknown, parsed.TargetType)
}

func TestKeywordClassifier_CodeTerms_KeyAndSynonymBothQualify(t *testing.T) {
	parsed := classify(t, "find the func that builds the cfg")
	assert.Contains(t, parsed.CodeTerms, "func", "synonym-table key is a code term")
	assert.Contains(t, parsed.CodeTerms, "cfg", "synonym-table value is also a code term")
}

func TestKeywordClassifier_Expanded_UnionsKeywordsAndSynonyms(t *testing.T) {
	parsed := classify(t, "find the func")
	assert.Contains(t, parsed.Expanded, "find")
	assert.Contains(t, parsed.Expanded, "func")
	for _, syn := range []string{"function", "method", "def", "fn"} {
		assert.Contains(t, parsed.Expanded, syn)
	}
}

func TestKeywordClassifier_Expanded_IsDeduplicatedAndInsertionOrdered(t *testing.T) {
	parsed := classify(t, "func function")
	seen := make(map[string]int)
	for _, term := range parsed.Expanded {
		seen[term]++
	}
	for term, count := range seen {
		assert.Equal(t, 1, count, "term %q should appear exactly once", term)
	}
	assert.Equal(t, "func", parsed.Expanded[0], "first keyword stays first")
}

func TestKeywordClassifier_SearchQuery_FindStripsLeadingPhrase(t *testing.T) {
	parsed := classify(t, "where is the retry logic")
	assert.Equal(t, "the retry logic", parsed.SearchQuery)
	assert.NotContains(t, parsed.SearchQuery, "where is")
}

func TestKeywordClassifier_SearchQuery_ExplainKeepsFullQuery(t *testing.T) {
	parsed := classify(t, "how does the embedding cache work")
	assert.Equal(t, parsed.Normalized, parsed.SearchQuery)
}

func TestKeywordClassifier_SearchQuery_OtherwiseJoinsExpanded(t *testing.T) {
	parsed := classify(t, "list all func")
	assert.Equal(t, parsed.SearchQuery, joinExpanded(parsed.Expanded))
}

func joinExpanded(expanded []string) string {
	out := ""
	for i, term := range expanded {
		if i > 0 {
			out += " "
		}
		out += term
	}
	return out
}

func TestKeywordClassifier_Confidence_BaselineWithNoSignal(t *testing.T) {
	parsed := classify(t, "qwerty")
	assert.InDelta(t, 0.5, parsed.Confidence, 0.0001)
}

func TestKeywordClassifier_Confidence_IncreasesWithKnownIntentAndTarget(t *testing.T) {
	parsed := classify(t, "where is the auth handler")
	// intent known (+0.2) + target known (+0.2) + keyword count in [2,6] (+0.1)
	assert.InDelta(t, 1.0, parsed.Confidence, 0.0001)
}

func TestKeywordClassifier_Confidence_NeverExceedsOne(t *testing.T) {
	parsed := classify(t, "where is the function class variable file error test config api database auth handler")
	assert.LessOrEqual(t, parsed.Confidence, 1.0)
}

func TestKeywordClassifier_EmptyQuery_ReturnsUnknownWithBaselineConfidence(t *testing.T) {
	parsed := classify(t, "")
	assert.Empty(t, parsed.Keywords)
	assert.Equal(t, IntentUnknown, parsed.ActionIntent)
	assert.Equal(t, TargetUnknown, parsed.TargetType)
	assert.InDelta(t, 0.5, parsed.Confidence, 0.0001)
}

func TestKeywordClassifier_NeverReturnsError(t *testing.T) {
	c := NewKeywordClassifier()
	queries := []string{"", "   ", "a", "🚀 emoji query 🚀", "SELECT * FROM users;"}
	for _, q := range queries {
		_, err := c.Classify(context.Background(), q)
		assert.NoError(t, err, "query %q should never error", q)
	}
}

func TestKeywordClassifier_OriginalIsPreservedVerbatim(t *testing.T) {
	raw := "  Where IS the Auth Handler?  "
	parsed := classify(t, raw)
	assert.Equal(t, raw, parsed.Original)
}
