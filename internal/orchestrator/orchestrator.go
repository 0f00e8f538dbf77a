package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/telemetry"
	"github.com/anomalyhq/corpusd/internal/tools"
)

const (
	defaultMaxToolCalls = 8
	defaultToolTimeout  = 10 * time.Second
)

// Options tune one orchestrator instance.
type Options struct {
	// MaxToolCalls caps the total tool executions in one pass.
	MaxToolCalls int
	// ToolTimeout bounds each individual tool execution.
	ToolTimeout time.Duration
}

func (o *Options) normalize() {
	if o.MaxToolCalls <= 0 {
		o.MaxToolCalls = defaultMaxToolCalls
	}
	if o.ToolTimeout <= 0 {
		o.ToolTimeout = defaultToolTimeout
	}
}

// Orchestrator drives the reasoning loop over one tool group at a time.
// A single instance serves every group; the group is a parameter of Run,
// not of the orchestrator.
type Orchestrator struct {
	registry *tools.Registry
	reasoner Reasoner
	events   *Publisher
	logger   *zap.Logger
	opts     Options
	tracer   trace.Tracer
}

// New creates an orchestrator. events may be nil when no broker is wired.
func New(registry *tools.Registry, reasoner Reasoner, events *Publisher, opts Options, logger *zap.Logger) (*Orchestrator, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	if reasoner == nil {
		return nil, fmt.Errorf("reasoner required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.normalize()
	return &Orchestrator{
		registry: registry,
		reasoner: reasoner,
		events:   events,
		logger:   logger,
		opts:     opts,
		tracer:   otel.Tracer("corpusd/orchestrator"),
	}, nil
}

// callBudget is the pass-wide execution allowance. First attempts
// reserve their slots up front, so a retry only happens when a slot is
// still free.
type callBudget struct {
	mu        sync.Mutex
	remaining int
}

func (b *callBudget) reserve(n int) {
	b.mu.Lock()
	b.remaining -= n
	b.mu.Unlock()
}

func (b *callBudget) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

func (b *callBudget) left() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Run executes one orchestration pass: the reasoning engine sees the
// group's tool definitions plus the conversation so far, and the loop
// runs until the engine finishes, the budget runs out, or the context
// dies. Tool failures are recorded and fed back, never fatal.
func (o *Orchestrator) Run(ctx context.Context, rc *reqctx.Context, group tools.GroupName, input string, turns []Turn) (*Result, error) {
	if rc == nil {
		return nil, tools.Errorf(tools.KindInvalidContext, "request context required")
	}
	if !group.Valid() {
		return nil, tools.InvalidArgument("group", "unknown tool group %q", group)
	}
	if input == "" {
		return nil, tools.InvalidArgument("input", "required")
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.run",
		trace.WithAttributes(
			attribute.String("group", string(group)),
			attribute.String("tenant", rc.Store().Tenant()),
		))
	defer span.End()

	start := time.Now()
	res := &Result{}
	bud := &callBudget{remaining: o.opts.MaxToolCalls}
	req := DecideRequest{
		Input:    input,
		Identity: rc.Identity(),
		Locale:   rc.Locale(),
		Turns:    turns,
		Tools:    tools.DefinitionsFor(group),
	}

	for {
		resp, err := o.reasoner.Decide(ctx, req)
		if err != nil {
			if len(res.Invocations) == 0 {
				return nil, fmt.Errorf("reasoning engine: %w", err)
			}
			// Keep what the pass already produced.
			res.Failures = append(res.Failures, Failure{
				Kind:    tools.KindInternal,
				Message: fmt.Sprintf("reasoning engine failed mid-pass: %v", err),
			})
			break
		}
		if resp.Narrative != "" {
			res.Narrative = resp.Narrative
		}
		if resp.Done || len(resp.Calls) == 0 {
			break
		}

		remaining := bud.left()
		toRun := resp.Calls
		overBudget := len(toRun) > remaining
		if overBudget {
			toRun = toRun[:remaining]
		}

		bud.reserve(len(toRun))
		invs := o.runStep(ctx, rc, toRun, bud)
		res.CallsUsed = o.opts.MaxToolCalls - bud.left()
		req.Observations = nil
		for i, inv := range invs {
			res.Invocations = append(res.Invocations, inv)
			if inv.Err != nil {
				res.Failures = append(res.Failures, Failure{
					Tool:    inv.Tool,
					Kind:    inv.Err.Kind,
					Message: inv.Err.Message,
				})
			}
			req.Observations = append(req.Observations, Observation{
				CallID: toRun[i].ID,
				Tool:   inv.Tool,
				Result: inv.Result,
				Err:    inv.Err,
			})
		}

		if overBudget {
			res.Failures = append(res.Failures, Failure{
				Kind: tools.KindBudgetExceeded,
				Message: fmt.Sprintf("tool call budget of %d exhausted, %d requested call(s) dropped",
					o.opts.MaxToolCalls, len(resp.Calls)-len(toRun)),
			})
			telemetry.BudgetExhaustedTotal.WithLabelValues(string(group)).Inc()
			break
		}
	}

	res.Elapsed = time.Since(start)

	outcome := "success"
	if len(res.Failures) > 0 {
		outcome = "partial"
	}
	telemetry.ObserveOrchestration(string(group), res.Elapsed, res.CallsUsed, outcome)
	span.SetAttributes(
		attribute.Int("tool_calls", res.CallsUsed),
		attribute.Int("failures", len(res.Failures)),
	)
	o.events.OrchestrationCompleted(ctx, rc, group, res)
	o.logger.Info("orchestration pass complete",
		zap.String("group", string(group)),
		zap.String("tenant", rc.Store().Tenant()),
		zap.Int("tool_calls", res.CallsUsed),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// runStep executes one batch of calls concurrently. The reasoning engine
// asked for them together, so they cannot depend on each other.
func (o *Orchestrator) runStep(ctx context.Context, rc *reqctx.Context, calls []ToolCall, bud *callBudget) []Invocation {
	invs := make([]Invocation, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			invs[i] = o.runCall(ctx, rc, call, bud)
		}(i, call)
	}
	wg.Wait()
	return invs
}

// runCall executes one tool call under the per-call timeout, retrying
// once when the failure is transient and a budget slot is still free.
func (o *Orchestrator) runCall(ctx context.Context, rc *reqctx.Context, call ToolCall, bud *callBudget) Invocation {
	ctx, span := o.tracer.Start(ctx, "tool."+string(call.Name))
	defer span.End()

	inv := Invocation{Tool: call.Name, Arguments: call.Arguments, StartedAt: time.Now()}

	result, err := o.executeOnce(ctx, rc, call)
	if err != nil && err.Retryable() && bud.take() {
		inv.Retried = true
		result, err = o.executeOnce(ctx, rc, call)
	}
	inv.Duration = time.Since(inv.StartedAt)
	inv.Result = result
	inv.Err = err

	kind := ""
	if err != nil {
		kind = string(err.Kind)
		span.SetAttributes(attribute.String("error_kind", kind))
		o.logger.Warn("tool call failed",
			zap.String("tool", string(call.Name)),
			zap.String("kind", kind),
			zap.Bool("retried", inv.Retried))
	}
	telemetry.ObserveToolCall(string(call.Name), inv.Duration, kind)
	return inv
}

func (o *Orchestrator) executeOnce(ctx context.Context, rc *reqctx.Context, call ToolCall) (result any, terr *tools.Error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			terr = tools.Errorf(tools.KindInternal, "tool %s panicked: %v", call.Name, r)
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, o.opts.ToolTimeout)
	defer cancel()

	out, err := o.registry.Execute(cctx, rc, call.Name, call.Arguments)
	if err != nil {
		return nil, tools.Convert(err)
	}
	return out, nil
}
