package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_security_events_total",
			Help: "Total number of security events ingested",
		},
		[]string{"type", "severity"},
	)

	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_security_events_dropped_total",
			Help: "Events discarded because the audit buffer hit its bound",
		},
	)

	FlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_audit_flushes_total",
			Help: "Total number of audit batch flushes",
		},
		[]string{"trigger"}, // critical, batch_size, interval, manual
	)

	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_audit_sink_errors_total",
			Help: "Batch writes that a sink rejected or failed",
		},
		[]string{"sink"},
	)

	RulesTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_rules_triggered_total",
			Help: "Threat detection rule firings",
		},
		[]string{"rule"},
	)

	AlertsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_alerts_open",
			Help: "Currently unresolved security alerts",
		},
	)

	BlockedIPs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_blocked_ips",
			Help: "IP addresses currently blocked",
		},
	)

	SecretAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_secret_access_total",
			Help: "Secret store operations by action and outcome",
		},
		[]string{"action", "outcome"},
	)
)
