package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soar_client",
			Name:      "requests_total",
			Help:      "SDK calls by operation and outcome (ok, rejected, failed).",
		},
		[]string{"op", "outcome"},
	)

	requestRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soar_client",
			Name:      "request_retries_total",
			Help:      "Retries of recoverable SDK failures.",
		},
		[]string{"op"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "soar_client",
			Name:      "request_duration_seconds",
			Help:      "SDK call latency, retries included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)
