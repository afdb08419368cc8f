package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	l, buf := newJSON(t, "info")

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("from context")

	assert.NotZero(t, buf.Len())
}

func TestFromContext_Default(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "01J0ABC")
	assert.Equal(t, "01J0ABC", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestL(t *testing.T) {
	l, buf := newJSON(t, "info")

	ctx := WithLogger(context.Background(), l)
	ctx = WithRequestID(ctx, "req-1")
	L(ctx).Info("enriched")

	entry := decode(t, buf)
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestL_NoRequestID(t *testing.T) {
	l, buf := newJSON(t, "info")

	L(WithLogger(context.Background(), l)).Info("plain")

	entry := decode(t, buf)
	_, ok := entry["request_id"]
	assert.False(t, ok)
}
