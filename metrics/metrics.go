// Package metrics provides Prometheus metrics for gatherd operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatherd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Authentication metrics
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherd_auth_failures_total",
			Help: "Total number of rejected authentication attempts",
		},
		[]string{"reason"}, // "missing_token", "invalid_token", "expired_token", "revoked_token", "user_not_found"
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatherd_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"status"}, // "success", "failure"
	)

	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatherd_registrations_total",
			Help: "Total number of accounts created",
		},
	)

	// Revocation registry metrics
	TokenRevocationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatherd_token_revocations_total",
			Help: "Total number of tokens added to the revocation registry",
		},
	)

	RevocationSweepDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatherd_revocation_sweep_deleted_total",
			Help: "Total number of expired revocation entries removed by the sweep",
		},
	)
)
