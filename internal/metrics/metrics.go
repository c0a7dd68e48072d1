package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway counters and histograms, partitioned by chain where it applies.

var (
	// RPC clients
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total chain RPC calls by status class",
	}, []string{"chain", "method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total RPC calls delayed by the rate limiter",
	}, []string{"chain"})

	// Node directory
	NodeDirectoryRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "nodedir",
		Name:      "refreshes_total",
		Help:      "Total provisioning-service refresh attempts",
	}, []string{"status"})

	// Bitcoin scan cache / dedup
	ScanCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "scan",
		Name:      "cache_hits_total",
		Help:      "UTXO scans answered from the tip-keyed cache",
	})

	ScanCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "scan",
		Name:      "cache_misses_total",
		Help:      "UTXO scans not answerable from cache",
	})

	ScanDedupShared = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "scan",
		Name:      "dedup_shared_total",
		Help:      "Callers that reused an in-flight UTXO scan",
	})

	// Fallback cascade
	FallbackAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Subsystem: "fallback",
		Name:      "attempts_total",
		Help:      "Fallback provider attempts by outcome",
	}, []string{"provider", "status"})

	// HTTP surface
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gateway",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Inbound request duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"route", "status"})
)
