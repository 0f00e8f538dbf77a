package reqctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomalyhq/corpusd/internal/store"
)

func testHandle(t *testing.T) *store.Handle {
	t.Helper()
	svc := store.NewService(store.NewMemoryEngine(), nil, nil)
	h, err := svc.Open("tenant-a")
	require.NoError(t, err)
	return h
}

func TestNew(t *testing.T) {
	h := testHandle(t)

	rc, err := New(h, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", rc.Identity())
	assert.Equal(t, "en", rc.Locale())
	assert.Equal(t, Tier(""), rc.Tier())
	assert.Same(t, h, rc.Store())
}

func TestNew_Options(t *testing.T) {
	rc, err := New(testHandle(t), "user-1",
		WithLocale("de"),
		WithTier(TierPro),
		WithTraceID("trace-123"),
	)
	require.NoError(t, err)
	assert.Equal(t, "de", rc.Locale())
	assert.Equal(t, TierPro, rc.Tier())
	assert.Equal(t, "trace-123", rc.TraceID())
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(nil, "user-1")
	assert.ErrorIs(t, err, ErrInvalidContext)

	_, err = New(testHandle(t), "")
	assert.ErrorIs(t, err, ErrInvalidContext)
}

func TestZeroContextPanics(t *testing.T) {
	var rc *Context

	assert.Panics(t, func() { rc.Store() })
	assert.Panics(t, func() { rc.Identity() })
	assert.Panics(t, func() { (&Context{}).Store() })

	// The soft accessors stay usable on a nil context.
	assert.Equal(t, "en", rc.Locale())
	assert.Empty(t, rc.TraceID())
}
