package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/store"
)

// Kind classifies a tool error. Every error leaving the registry carries
// one, so the orchestrator and the reasoning engine can branch on it
// instead of parsing message strings.
type Kind string

const (
	// Context errors. Fatal to the request: no tool can run safely.
	KindInvalidContext      Kind = "invalid_context"
	KindMissingContextField Kind = "missing_context_field"

	// Input errors. Local to one call.
	KindInvalidArguments Kind = "invalid_tool_arguments"
	KindUnknownTool      Kind = "unknown_tool"

	// Domain errors. Expected, recoverable by the caller.
	KindInsufficientData     Kind = "insufficient_data"
	KindSeedNotFound         Kind = "seed_not_found"
	KindInvalidGeometry      Kind = "invalid_geometry"
	KindEmbeddingUnavailable Kind = "embedding_unavailable"
	KindComparisonIncomplete Kind = "comparison_incomplete"
	KindUnsupportedFormat    Kind = "unsupported_format"

	// Execution errors. Transient; one retry within budget is safe.
	KindTimeout          Kind = "tool_timeout"
	KindStoreUnavailable Kind = "store_unavailable"

	// Orchestration errors. Terminate the pass, keep partial results.
	KindBudgetExceeded     Kind = "tool_budget_exceeded"
	KindNoSpecialistMatch  Kind = "no_specialist_matched"

	// Anything uncategorized that escaped a tool.
	KindInternal Kind = "internal"
)

// Error is the typed error every tool failure is reported as.
type Error struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"` // offending field for argument errors
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether one in-pass retry is safe.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindStoreUnavailable
}

// Errorf builds a typed error.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds an argument error naming the offending field.
func InvalidArgument(field, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArguments, Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from any error, mapping untyped errors from the
// lower layers onto the taxonomy. Unrecognized errors are KindInternal;
// nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return Convert(err).Kind
}

// Convert coerces an arbitrary error into a typed one. Already-typed
// errors pass through unchanged.
func Convert(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "tool call timed out"}
	case errors.Is(err, store.ErrUnavailable):
		return &Error{Kind: KindStoreUnavailable, Message: err.Error()}
	case errors.Is(err, store.ErrVectorsUnavailable), errors.Is(err, store.ErrEmptyText):
		return &Error{Kind: KindEmbeddingUnavailable, Message: err.Error()}
	case errors.Is(err, reqctx.ErrInvalidContext):
		return &Error{Kind: KindInvalidContext, Message: err.Error()}
	case errors.Is(err, reqctx.ErrMissingField):
		return &Error{Kind: KindMissingContextField, Message: err.Error()}
	default:
		return &Error{Kind: KindInternal, Message: err.Error()}
	}
}
