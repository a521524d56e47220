package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codescout",
		Name:      "queries_total",
		Help:      "Queries executed, by classified intent.",
	}, []string{"intent"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codescout",
		Name:      "query_duration_seconds",
		Help:      "End-to-end query latency.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"intent"})

	sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codescout",
		Name:      "source_failures_total",
		Help:      "Per-source search failures, including timeouts.",
	}, []string{"source"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codescout",
		Name:      "cache_hits_total",
		Help:      "Queries answered from the response cache.",
	})

	partialResponses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codescout",
		Name:      "partial_responses_total",
		Help:      "Responses returned with one or more sources missing.",
	})
)
