package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubClassifier struct {
	result ParsedQuery
	err    error
}

func (s stubClassifier) Classify(_ context.Context, _ string) (ParsedQuery, error) {
	return s.result, s.err
}

func TestParser_NilModel_UsesKeywordPath(t *testing.T) {
	p := NewParser(nil, nil)
	parsed := p.Parse(context.Background(), "where is the auth handler")
	assert.Equal(t, IntentFind, parsed.ActionIntent)
	assert.Equal(t, TargetAPI, parsed.TargetType)
}

func TestParser_ModelSucceeds_ReturnsModelResult(t *testing.T) {
	want := ParsedQuery{Original: "q", SearchQuery: "model-produced", Confidence: 0.99}
	p := NewParser(stubClassifier{result: want}, nil)

	got := p.Parse(context.Background(), "q")
	assert.Equal(t, want, got)
}

func TestParser_ModelErrors_FallsBackToKeywordPath(t *testing.T) {
	p := NewParser(stubClassifier{err: errors.New("model unavailable")}, nil)

	got := p.Parse(context.Background(), "where is the auth handler")
	assert.Equal(t, IntentFind, got.ActionIntent, "should fall back to the keyword result, not an empty one")
	assert.Equal(t, TargetAPI, got.TargetType)
}

func TestParser_FallbackNeverSurfacesAnError(t *testing.T) {
	p := NewParser(stubClassifier{err: errors.New("boom")}, nil)
	assert.NotPanics(t, func() {
		p.Parse(context.Background(), "anything")
	})
}
