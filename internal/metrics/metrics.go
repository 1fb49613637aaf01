// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LibraryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soar",
			Subsystem: "library",
			Name:      "requests_total",
			Help:      "Library page requests by type, pagination mode and outcome.",
		},
		[]string{"type", "mode", "outcome"},
	)

	LibraryRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "soar",
			Subsystem: "library",
			Name:      "request_duration_seconds",
			Help:      "Time to resolve a library page, store calls included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	StoreQueryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soar",
			Subsystem: "store",
			Name:      "query_failures_total",
			Help:      "Collection queries that returned an error.",
		},
		[]string{"collection"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soar",
			Subsystem: "library",
			Name:      "search_requests_total",
			Help:      "Library searches by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "store_unavailable"
	OutcomeCanceled    = "canceled"

	// TypeInvalid replaces an unrecognized type label.
	TypeInvalid = "invalid"
)
