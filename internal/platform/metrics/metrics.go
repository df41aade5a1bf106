// Package metrics defines and registers all custom Prometheus metrics for
// clinicd. It is the single source of truth for metric names, labels, and
// help strings. Metrics self-register with the default registry on import
// and are exposed through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinicd"

// HTTPRequestsTotal counts handled HTTP requests.
// Labels:
//   - method: HTTP method
//   - path: the registered route template (e.g. "/api/v1/appointments/:id")
//   - status: numeric response status
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled.",
	},
	[]string{"method", "path", "status"},
)

// HTTPRequestDuration measures request latency per route.
// Labels:
//   - method: HTTP method
//   - path: the registered route template
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP request handling.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path"},
)

// BookingsTotal counts booking attempts by outcome.
// Label:
//   - outcome: "created", "rescheduled", "conflict", "rejected", or "error"
var BookingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Total number of booking attempts, by outcome.",
	},
	[]string{"outcome"},
)

// ConflictChecksTotal counts schedule conflict checks by result.
// Label:
//   - result: "conflict", "clear", or "error"
var ConflictChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflict_checks_total",
		Help:      "Total number of schedule conflict checks, by result.",
	},
	[]string{"result"},
)

// AttachmentURLsIssuedTotal counts pre-signed attachment URLs handed out.
// Label:
//   - op: "upload" or "download"
var AttachmentURLsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attachment_urls_issued_total",
		Help:      "Total number of pre-signed attachment URLs issued.",
	},
	[]string{"op"},
)
