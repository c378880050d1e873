package query

import (
	"context"
	"log/slog"
)

// Parser is the entry point callers use: it tries an optional model-backed
// Classifier first and transparently falls back to the keyword path,
// whether the model classifier is nil, disabled, or returns an error. No
// failure here ever reaches the caller as an error.
type Parser struct {
	model   Classifier
	keyword *KeywordClassifier
	log     *slog.Logger
}

// NewParser builds a Parser around the always-available keyword path. Pass
// a non-nil modelClassifier to try a model path first on every query; pass
// nil to run keyword-only (the default until a model classifier exists).
func NewParser(modelClassifier Classifier, log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{
		model:   modelClassifier,
		keyword: NewKeywordClassifier(),
		log:     log,
	}
}

// Parse returns a ParsedQuery for rawQuery. It never returns an error: the
// keyword path is infallible, and any model-path error is logged and
// swallowed in favor of the keyword result.
func (p *Parser) Parse(ctx context.Context, rawQuery string) ParsedQuery {
	if p.model != nil {
		if parsed, err := p.model.Classify(ctx, rawQuery); err == nil {
			return parsed
		} else {
			p.log.Debug("model query classifier failed, falling back to keyword path",
				"error", err)
		}
	}

	// Classify's error return is part of the Classifier interface for
	// future classifiers; KeywordClassifier itself never returns one.
	parsed, _ := p.keyword.Classify(ctx, rawQuery)
	return parsed
}
