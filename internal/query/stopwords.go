package query

// stopWords drops both general English filler and the programming
// keywords that carry no search signal in a code query. The programming
// half is the sparse index's own stop-word list minus the words the target
// and synonym tables match on (var, func, function, def, class, err, ctx),
// which are kept as keywords.
var stopWords = buildStopWordSet(
	// General English filler.
	"a", "an", "the", "is", "are", "was", "were", "be", "been", "being",
	"do", "does", "did", "doing", "to", "of", "in", "on", "at", "for",
	"with", "by", "from", "up", "down", "this", "that", "these", "those",
	"it", "its", "and", "or", "but", "so", "can", "could", "should",
	"would", "will", "shall", "may", "might", "must", "i", "you", "he",
	"she", "we", "they", "me", "my", "your", "his", "her", "our", "their",

	// Programming keywords (the sparse index's stop-word table, less the
	// words the target and synonym tables look up).
	"let", "const",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "tmp",
)

func buildStopWordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func isStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
