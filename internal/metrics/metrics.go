package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripforge_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripforge_audit_events_total",
			Help: "Total number of audit events emitted, by action.",
		},
		[]string{"action"},
	)

	SecurityEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripforge_security_events_total",
			Help: "Total number of security-grade events emitted, by severity.",
		},
		[]string{"severity"},
	)

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripforge_validation_failures_total",
			Help: "Total number of input validation failures, by schema.",
		},
		[]string{"schema"},
	)

	LoginLockoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tripforge_login_lockouts_total",
			Help: "Total number of accounts locked out after repeated login failures.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AuditEventsTotal,
		SecurityEventsTotal,
		ValidationFailuresTotal,
		LoginLockoutsTotal,
	)
}
