package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by engine hooks.
type Metrics struct {
	NodeVisits   *prometheus.CounterVec
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	Suspensions  *prometheus.CounterVec
	Approvals    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_node_visits_total",
				Help: "Total number of node executions",
			},
			[]string{"node_id", "kind"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_tool_calls_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool_name", "is_error"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_tool_duration_seconds",
				Help:    "Duration of tool executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
		Suspensions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_suspensions_total",
				Help: "Turns suspended for human approval",
			},
			[]string{"node_id"},
		),
		Approvals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_approvals_total",
				Help: "Approval decisions by outcome",
			},
			[]string{"node_id", "approved"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.NodeVisits, m.ToolCalls, m.ToolDuration, m.Suspensions, m.Approvals)
	}
	return m
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeID), e.NodeKind).Inc()
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			m.ToolCalls.WithLabelValues(e.ToolName, strconv.FormatBool(e.IsError)).Inc()
			m.ToolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
		OnSuspend: func(ctx context.Context, e *domain.ApprovalEvent) {
			m.Suspensions.WithLabelValues(string(e.NodeID)).Inc()
		},
		OnResume: func(ctx context.Context, e *domain.ApprovalEvent) {
			m.Approvals.WithLabelValues(string(e.NodeID), strconv.FormatBool(e.Approved)).Inc()
		},
	}
}
