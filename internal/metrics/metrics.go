// ================================
// internal/metrics/metrics.go - Self-monitoring for GRCPLANE-CORE
// ================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grcplane_core_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Alert lifecycle metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"severity", "type", "source"}, // source: user/system
	)

	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_alert_transitions_total",
			Help: "Total number of alert status transitions",
		},
		[]string{"to_status"},
	)

	// Rule evaluation metrics
	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_rule_evaluations_total",
			Help: "Total number of rule evaluations",
		},
		[]string{"trigger_type", "outcome"}, // outcome: fired/suppressed/no_match/error
	)

	BatchEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grcplane_core_batch_evaluation_duration_seconds",
			Help:    "Duration of batch rule evaluation runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity_type"},
	)

	// Escalation metrics
	EscalationsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_escalations_fired_total",
			Help: "Total number of escalation level transitions",
		},
		[]string{"level"},
	)

	EscalationChainsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grcplane_core_escalation_chains_active",
			Help: "Number of escalation chains currently armed",
		},
	)

	WorkflowTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_workflow_triggers_total",
			Help: "Total number of escalation workflow trigger attempts",
		},
		[]string{"result"}, // success/error
	)

	// Scheduler metrics
	SchedulerTimers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_scheduler_timer_operations_total",
			Help: "Total number of escalation timer arm/disarm operations",
		},
		[]string{"operation"}, // arm/disarm/fire/replace
	)

	// Notification metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_notifications_sent_total",
			Help: "Total number of notifications dispatched to integrations",
		},
		[]string{"integration", "type", "success"},
	)

	// Valkey cache metrics
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grcplane_core_cache_requests_total",
			Help: "Total number of cache requests",
		},
		[]string{"operation", "result"}, // get/set/delete, hit/miss/error/success
	)
)
