// Package telemetry provides Prometheus metrics and OTLP trace export
// for the orchestration layer.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCallsTotal counts tool executions.
	// Labels: tool, result (success, error)
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Total number of tool executions",
		},
		[]string{"tool", "result"},
	)

	// ToolCallDuration tracks how long tool executions take.
	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpusd",
			Subsystem: "tools",
			Name:      "call_duration_seconds",
			Help:      "Duration of tool executions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// ToolErrorsTotal counts tool failures by error kind.
	ToolErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "tools",
			Name:      "errors_total",
			Help:      "Total number of tool failures by error kind",
		},
		[]string{"tool", "kind"},
	)

	// OrchestrationsTotal counts orchestration passes.
	// Labels: group, result (success, partial, error)
	OrchestrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Total number of orchestration passes",
		},
		[]string{"group", "result"},
	)

	// OrchestrationDuration tracks end-to-end orchestration latency.
	OrchestrationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpusd",
			Subsystem: "orchestrator",
			Name:      "run_duration_seconds",
			Help:      "Duration of orchestration passes in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"group"},
	)

	// ToolCallsPerRun tracks how many tool calls one pass consumed.
	ToolCallsPerRun = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corpusd",
			Subsystem: "orchestrator",
			Name:      "tool_calls_per_run",
			Help:      "Number of tool calls consumed by one orchestration pass",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"group"},
	)

	// BudgetExhaustedTotal counts passes stopped by the call budget.
	BudgetExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corpusd",
			Subsystem: "orchestrator",
			Name:      "budget_exhausted_total",
			Help:      "Total number of passes terminated by the tool call budget",
		},
		[]string{"group"},
	)
)

// ObserveToolCall records one tool execution.
func ObserveToolCall(tool string, d time.Duration, errKind string) {
	result := "success"
	if errKind != "" {
		result = "error"
		ToolErrorsTotal.WithLabelValues(tool, errKind).Inc()
	}
	ToolCallsTotal.WithLabelValues(tool, result).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveOrchestration records one completed orchestration pass.
func ObserveOrchestration(group string, d time.Duration, calls int, result string) {
	OrchestrationsTotal.WithLabelValues(group, result).Inc()
	OrchestrationDuration.WithLabelValues(group).Observe(d.Seconds())
	ToolCallsPerRun.WithLabelValues(group).Observe(float64(calls))
}
