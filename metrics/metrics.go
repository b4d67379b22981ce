package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "incidentwatch_reports_submitted_total",
		Help: "Number of incident reports submitted.",
	})

	VerificationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "incidentwatch_verifications_total",
		Help: "Number of community verifications recorded.",
	})

	EvidenceProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incidentwatch_evidence_processed_total",
		Help: "Evidence files that finished processing, by terminal status.",
	}, []string{"status"})

	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incidentwatch_events_broadcast_total",
		Help: "Events published on the internal bus, by event name.",
	}, []string{"event"})

	ReportsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "incidentwatch_reports_purged_total",
		Help: "Inactive reports purged from the store.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incidentwatch_http_requests_total",
		Help: "HTTP requests served, by method, path and status.",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "incidentwatch_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
