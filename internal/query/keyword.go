package query

import (
	"context"
	"regexp"
	"strings"
)

// identifierPattern splits a normalized query into identifier-like runs,
// the query-side analogue of the sparse index's token regex.
var identifierPattern = regexp.MustCompile(`[a-zA-Z0-9_]+`)

var whitespaceRun = regexp.MustCompile(`\s+`)

const minKeywordLength = 2

// KeywordClassifier implements Classify using the keyword-path algorithm:
// normalize, tokenize, match fixed intent/target pattern tables, expand via
// the code synonym dictionary, and assemble a search_query. It never
// returns an error and is always available, making it the fallback for any
// model-backed Classifier.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the always-available keyword-path classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var _ Classifier = (*KeywordClassifier)(nil)

func (k *KeywordClassifier) Classify(_ context.Context, rawQuery string) (ParsedQuery, error) {
	normalized := normalize(rawQuery)
	keywords := tokenize(normalized)

	intent := matchIntent(normalized)
	target := matchTarget(keywords)
	codeTerms := extractCodeTerms(keywords)
	expanded := expandTerms(keywords, codeTerms)
	searchQuery := buildSearchQuery(normalized, intent, expanded)
	confidence := computeConfidence(intent, target, keywords)

	return ParsedQuery{
		Original:     rawQuery,
		Normalized:   normalized,
		Keywords:     keywords,
		CodeTerms:    codeTerms,
		ActionIntent: intent,
		TargetType:   target,
		Expanded:     expanded,
		SearchQuery:  searchQuery,
		Confidence:   confidence,
	}, nil
}

// normalize lowercases and collapses interior whitespace to single spaces.
func normalize(raw string) string {
	lowered := strings.ToLower(raw)
	collapsed := whitespaceRun.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(collapsed)
}

// tokenize splits on non-identifier characters and drops stop words and
// tokens shorter than minKeywordLength.
func tokenize(normalized string) []string {
	candidates := identifierPattern.FindAllString(normalized, -1)
	keywords := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if len(c) < minKeywordLength {
			continue
		}
		if isStopWord(c) {
			continue
		}
		keywords = append(keywords, c)
	}
	return keywords
}

// extractCodeTerms returns the keywords that are code-domain vocabulary.
func extractCodeTerms(keywords []string) []string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if isCodeTerm(kw) {
			terms = append(terms, kw)
		}
	}
	return terms
}

// expandTerms unions keywords with the synonyms of every code term,
// deduplicated and in first-seen order.
func expandTerms(keywords, codeTerms []string) []string {
	seen := make(map[string]struct{}, len(keywords)*2)
	expanded := make([]string, 0, len(keywords)*2)

	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		expanded = append(expanded, term)
	}

	for _, kw := range keywords {
		add(kw)
	}
	for _, term := range codeTerms {
		for _, syn := range synonymsOf(term) {
			add(syn)
		}
	}
	return expanded
}

// buildSearchQuery assembles the string the hybrid engine actually
// searches with, per the three action_intent branches.
func buildSearchQuery(normalized string, intent ActionIntent, expanded []string) string {
	switch intent {
	case IntentFind:
		phrase := leadingPatternPhrase(normalized, IntentFind)
		if phrase == "" {
			return normalized
		}
		stripped := strings.TrimPrefix(normalized, phrase)
		return strings.TrimSpace(stripped)
	case IntentExplain:
		return normalized
	default:
		return strings.Join(expanded, " ")
	}
}

// computeConfidence starts at 0.5 and adds fixed bonuses for a known
// intent, a known target, and a keyword count in the sweet spot [2,6].
func computeConfidence(intent ActionIntent, target TargetType, keywords []string) float64 {
	confidence := 0.5
	if intent != IntentUnknown {
		confidence += 0.2
	}
	if target != TargetUnknown {
		confidence += 0.2
	}
	if n := len(keywords); n >= 2 && n <= 6 {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
