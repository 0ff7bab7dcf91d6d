package logging_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bars-377/web-chat/internal/infra/logging"
)

// syncBuffer guards a bytes.Buffer for loggers created from the global config.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

//nolint:paralleltest
func TestGetLogger_JSONAppliesFilter(t *testing.T) {
	ctx := context.Background()
	out := &syncBuffer{}

	logging.Configure(ctx, logging.LoggerConfig{
		Level:        "warn",
		Filter:       "svc.chatsvc:debug,repo:error",
		JSON:         true,
		OutputHandle: out,
	}, "test")
	t.Cleanup(func() { logging.Configure(ctx, logging.LoggerConfig{}, "") })

	logging.GetLogger("svc.chatsvc.session").DebugContext(ctx, "session verbose")
	logging.GetLogger("repo.store").WarnContext(ctx, "store quiet")
	logging.GetLogger("svc.authsvc").InfoContext(ctx, "auth hidden")
	logging.GetLogger("svc.authsvc").WarnContext(ctx, "auth shown")

	logged := out.String()
	assert.Contains(t, logged, `"msg":"session verbose"`)
	assert.Contains(t, logged, `"msg":"auth shown"`)
	assert.NotContains(t, logged, "store quiet")
	assert.NotContains(t, logged, "auth hidden")
}
