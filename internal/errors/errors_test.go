package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesSeverityAndRetryable(t *testing.T) {
	err := New(KindTimeout, "embed request timed out", nil)
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.True(t, err.Retryable)

	err = New(KindValidation, "bad query", nil)
	assert.Equal(t, SeverityError, err.Severity)
	assert.False(t, err.Retryable)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(KindInternal, nil))
}

func TestSearchErrorIsMatchesByKind(t *testing.T) {
	a := New(KindNotFound, "store missing", nil)
	b := New(KindNotFound, "different message", nil)
	assert.True(t, errors.Is(a, b))

	c := New(KindInternal, "store missing", nil)
	assert.False(t, errors.Is(a, c))
}

func TestSearchErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(KindInternal, cause)
	require.ErrorIs(t, wrapped, cause)
}

func TestWithDetail(t *testing.T) {
	err := New(KindQueueFull, "queue full", nil).WithDetail("store", "acme")
	assert.Equal(t, "acme", err.Details["store"])
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(KindModelUnavailable, "down", nil)))
	assert.False(t, IsRetryable(New(KindAlreadyExists, "dup", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindQueueFull, KindOf(QueueFull("full")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestToWireOmitsDetailsWhenAbsent(t *testing.T) {
	w := ToWire(Validation("bad path", nil))
	assert.Equal(t, "validation", w.Code)
	assert.Nil(t, w.Details)
}

func TestToWireNonSearchErrorBecomesInternal(t *testing.T) {
	w := ToWire(errors.New("boom"))
	assert.Equal(t, "internal", w.Code)
}
