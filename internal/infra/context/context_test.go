package context_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	context_ "github.com/Bars-377/web-chat/internal/infra/context"
)

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := context_.TraceIDFromContext(ctx)
	assert.False(t, ok)
	_, ok = context_.UsernameFromContext(ctx)
	assert.False(t, ok)
	_, ok = context_.SessionIDFromContext(ctx)
	assert.False(t, ok)

	ctx = context_.WithTraceID(ctx, "trace")
	ctx = context_.WithUsername(ctx, "alice")
	ctx = context_.WithSessionID(ctx, "session")

	traceID, _ := context_.TraceIDFromContext(ctx)
	username, _ := context_.UsernameFromContext(ctx)
	sessionID, _ := context_.SessionIDFromContext(ctx)

	assert.Equal(t, "trace", traceID)
	assert.Equal(t, "alice", username)
	assert.Equal(t, "session", sessionID)
}
