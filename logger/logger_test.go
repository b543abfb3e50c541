package logger

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	assert.Equal(t, "unknown", RequestID(context.Background()))
	assert.Equal(t, "rid-1", RequestID(WithContext(context.Background(), "rid-1")))

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "unknown", RequestID(c))

	c.Request = httptest.NewRequest("GET", "/", nil).WithContext(WithContext(context.Background(), "rid-2"))
	assert.Equal(t, "rid-2", RequestID(c))

	c.Set(RequestIDKey, "rid-3")
	assert.Equal(t, "rid-3", RequestID(c))
}

func TestHelpersAttachRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := Log
	Log = zap.New(core)
	t.Cleanup(func() { Log = prev })

	ctx := WithContext(context.Background(), "rid-9")
	Info(ctx, "info")
	Warn(ctx, "warn")
	Debug(ctx, "debug")
	Error(ctx, "error", errors.New("boom"))

	entries := logs.All()
	assert.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, "rid-9", e.ContextMap()["request_id"])
	}
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestInitializeWithWriter_TeesJSON(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	var buf bytes.Buffer
	InitializeWithWriter("production", &buf)
	Log.Info("payment_attempt", zap.String("attempt_id", "a-1"))
	_ = Log.Sync()

	assert.Contains(t, buf.String(), `"msg":"payment_attempt"`)
	assert.Contains(t, buf.String(), `"attempt_id":"a-1"`)
}
