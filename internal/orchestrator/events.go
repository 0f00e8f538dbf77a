package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/tools"
)

// Publisher emits orchestration lifecycle events onto NATS so downstream
// consumers (billing, audit, analytics) can track tool usage without
// sitting in the request path. Publishing is fire-and-forget; a broker
// outage never fails a request. A nil Publisher is a no-op.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewPublisher wraps a NATS connection. prefix defaults to "corpusd".
func NewPublisher(nc *nats.Conn, prefix string, logger *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = "corpusd"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{nc: nc, prefix: prefix, logger: logger}
}

// OrchestrationEvent is the wire form of a completed pass.
type OrchestrationEvent struct {
	Tenant    string          `json:"tenant"`
	Identity  string          `json:"identity"`
	Group     tools.GroupName `json:"group"`
	ToolCalls int             `json:"tool_calls"`
	Failures  int             `json:"failures"`
	ElapsedMs int64           `json:"elapsed_ms"`
	At        time.Time       `json:"at"`
}

// OrchestrationCompleted publishes one completed pass.
func (p *Publisher) OrchestrationCompleted(ctx context.Context, rc *reqctx.Context, group tools.GroupName, res *Result) {
	if p == nil || p.nc == nil {
		return
	}

	ev := OrchestrationEvent{
		Tenant:    rc.Store().Tenant(),
		Identity:  rc.Identity(),
		Group:     group,
		ToolCalls: res.CallsUsed,
		Failures:  len(res.Failures),
		ElapsedMs: res.Elapsed.Milliseconds(),
		At:        time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("encode orchestration event", zap.Error(err))
		return
	}
	if err := p.nc.Publish(p.prefix+".orchestration.completed", data); err != nil {
		p.logger.Warn("publish orchestration event", zap.Error(err))
	}
}
