package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/store"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := New("debug", format)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}

	logger, err := New("warn", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud", "json")
	assert.Error(t, err)
}

func TestRequestFields(t *testing.T) {
	svc := store.NewService(store.NewMemoryEngine(), nil, zap.NewNop())
	handle, err := svc.Open("tenant-a")
	require.NoError(t, err)
	rc, err := reqctx.New(handle, "alice", reqctx.WithTraceID("trace-1"))
	require.NoError(t, err)

	fields := RequestFields(rc)
	require.Len(t, fields, 3)

	assert.Nil(t, RequestFields(nil))
}
