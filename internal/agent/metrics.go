package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "codescribe"

// ToolCallsTotal counts tool invocations after retries are exhausted or one
// attempt succeeds.
// Labels:
//   - tool: tool name, or "unknown" for names not in the registry
//   - outcome: "ok" or "error"
var ToolCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "tool_calls_total",
		Help:      "Total number of tool invocations requested by the model.",
	},
	[]string{"tool", "outcome"},
)

// ToolRetriesTotal counts failed attempts that were retried.
var ToolRetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "tool_retries_total",
		Help:      "Total number of tool attempts that failed and were retried.",
	},
	[]string{"tool"},
)

// RunDuration measures one Agent.Run from input to reply.
var RunDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "agent",
		Name:      "run_duration_seconds",
		Help:      "Duration of a single agent run including model round trips and tool calls.",
		Buckets:   prometheus.DefBuckets,
	},
)
