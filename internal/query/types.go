// Package query turns a raw search string into a ParsedQuery: normalized
// text, extracted keywords, a guessed intent/target, a synonym-expanded term
// list, and the query string the hybrid engine actually searches with.
package query

import "context"

// ActionIntent is the verb-like intent a query expresses.
type ActionIntent string

const (
	IntentFind    ActionIntent = "find"
	IntentExplain ActionIntent = "explain"
	IntentList    ActionIntent = "list"
	IntentFix     ActionIntent = "fix"
	IntentCompare ActionIntent = "compare"
	IntentUnknown ActionIntent = "unknown"
)

// TargetType is the kind of code entity a query is asking about.
type TargetType string

const (
	TargetFunction TargetType = "function"
	TargetClass    TargetType = "class"
	TargetVariable TargetType = "variable"
	TargetFile     TargetType = "file"
	TargetError    TargetType = "error"
	TargetTest     TargetType = "test"
	TargetConfig   TargetType = "config"
	TargetAPI      TargetType = "api"
	TargetDatabase TargetType = "database"
	TargetAuth     TargetType = "auth"
	TargetUnknown  TargetType = "unknown"
)

// ParsedQuery is the structured result of understanding a raw query string.
type ParsedQuery struct {
	Original     string
	Normalized   string
	Keywords     []string
	CodeTerms    []string
	ActionIntent ActionIntent
	TargetType   TargetType
	Expanded     []string
	SearchQuery  string
	Confidence   float64
}

// Classifier turns a raw query into a ParsedQuery. KeywordClassifier is
// always available; a model-backed classifier can be layered in front of it
// as long as it falls back to the keyword path on any error.
type Classifier interface {
	Classify(ctx context.Context, rawQuery string) (ParsedQuery, error)
}
