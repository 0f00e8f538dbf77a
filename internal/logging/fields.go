package logging

import (
	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/reqctx"
)

// RequestFields returns the fields every log line in a request's scope
// carries: tenant, identity and trace ID when one was assigned.
func RequestFields(rc *reqctx.Context) []zap.Field {
	if rc == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("tenant", rc.Store().Tenant()),
		zap.String("identity", rc.Identity()),
	}
	if rc.TraceID() != "" {
		fields = append(fields, zap.String("trace_id", rc.TraceID()))
	}
	return fields
}
