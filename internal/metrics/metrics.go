// Package metrics exposes prometheus instrumentation for the texture loading
// pipeline. Served by cmd/texload when TEXLOAD_METRICS_ADDR is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoadsTotal counts resolved loads by the transport that actually produced
	// the texture ("worker" or "main-thread") — the recorded tag, never the
	// transport-exists heuristic.
	LoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "texload",
		Name:      "loads_total",
		Help:      "Resolved texture loads by loading method.",
	}, []string{"method"})

	LoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "texload",
		Name:      "load_failures_total",
		Help:      "Loads where both the worker and the fallback path failed.",
	})

	WorkerTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "texload",
		Name:      "worker_timeouts_total",
		Help:      "Worker-path requests that hit the timeout budget and fell back.",
	})

	WorkerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "texload",
		Name:      "worker_errors_total",
		Help:      "Explicit error messages posted by the worker transport.",
	})

	LateDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "texload",
		Name:      "late_responses_discarded_total",
		Help:      "Worker results that arrived after the request was settled and were dropped.",
	})

	LoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "texload",
		Name:      "load_duration_seconds",
		Help:      "Wall time from load request to resolved texture, by method.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"method"})

	BytesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "texload",
		Name:      "bytes_fetched_total",
		Help:      "Video bytes fetched by the worker transport.",
	})

	PendingLoads = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "texload",
		Name:      "pending_loads",
		Help:      "Loads currently in flight.",
	})

	BlobBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "texload",
		Name:      "blob_store_bytes",
		Help:      "Bytes currently held by the in-memory blob store.",
	})

	WarmProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "texload",
		Name:      "warm_probes_total",
		Help:      "CDN warm probes by outcome (sent, skipped, failed).",
	}, []string{"outcome"})
)
