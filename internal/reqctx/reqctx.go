// Package reqctx carries the per-request security and identity bundle.
//
// A Context is created once at the edge of a request, passed by pointer
// through the whole tool-call chain, and never mutated. The tenant-scoped
// store handle only exists inside it, so a tool that wants data access has
// to take a Context parameter; there is no ambient fallback.
package reqctx

import (
	"errors"
	"fmt"

	"github.com/anomalyhq/corpusd/internal/store"
)

var (
	// ErrInvalidContext indicates the bundle could not be constructed.
	ErrInvalidContext = errors.New("invalid request context")

	// ErrMissingField indicates a required field was read off a context
	// that was never properly constructed. This is a programming error,
	// not a recoverable condition.
	ErrMissingField = errors.New("missing request context field")
)

// Tier is the caller's subscription tier.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Context is the immutable per-request bundle. Zero value is unusable;
// construct through New.
type Context struct {
	handle     *store.Handle
	identityID string
	locale     string
	tier       Tier
	traceID    string
}

// Option adjusts optional context fields at construction time.
type Option func(*Context)

// WithLocale overrides the default "en" locale.
func WithLocale(locale string) Option {
	return func(c *Context) {
		if locale != "" {
			c.locale = locale
		}
	}
}

// WithTier sets the caller's tier.
func WithTier(tier Tier) Option {
	return func(c *Context) { c.tier = tier }
}

// WithTraceID attaches a trace ID for correlation.
func WithTraceID(traceID string) Option {
	return func(c *Context) { c.traceID = traceID }
}

// New constructs a request context. The handle must already be bound to
// the identity's tenant; no tool may construct its own.
func New(handle *store.Handle, identityID string, opts ...Option) (*Context, error) {
	if handle == nil {
		return nil, fmt.Errorf("%w: store handle required", ErrInvalidContext)
	}
	if identityID == "" {
		return nil, fmt.Errorf("%w: identity ID required", ErrInvalidContext)
	}

	c := &Context{
		handle:     handle,
		identityID: identityID,
		locale:     "en",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Store returns the tenant-scoped store handle. Calling it on a context
// that was not built through New panics: it means a tool ran outside a
// request, and that must be loud, not a quiet nil query.
func (c *Context) Store() *store.Handle {
	if c == nil || c.handle == nil {
		panic(fmt.Errorf("%w: store handle", ErrMissingField))
	}
	return c.handle
}

// Identity returns the authenticated identity ID, loudly failing on an
// unconstructed context like Store.
func (c *Context) Identity() string {
	if c == nil || c.identityID == "" {
		panic(fmt.Errorf("%w: identity ID", ErrMissingField))
	}
	return c.identityID
}

// Locale returns the request locale, defaulting to "en".
func (c *Context) Locale() string {
	if c == nil || c.locale == "" {
		return "en"
	}
	return c.locale
}

// Tier returns the caller's tier, empty when unset.
func (c *Context) Tier() Tier {
	if c == nil {
		return ""
	}
	return c.tier
}

// TraceID returns the trace ID, empty when unset.
func (c *Context) TraceID() string {
	if c == nil {
		return ""
	}
	return c.traceID
}
