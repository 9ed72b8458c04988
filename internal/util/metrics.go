package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_loads_total",
		Help: "Total number of dataset fetches by source kind and outcome",
	}, []string{"kind", "outcome"})

	DatasetLoadLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dataset_load_latency_seconds",
		Help:    "Latency of fetching and parsing a dataset",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dataset_cache_hits_total",
		Help: "Total number of dataset cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dataset_cache_misses_total",
		Help: "Total number of dataset cache misses",
	})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_duration_seconds",
		Help:    "Duration of the enrichment pipeline",
		Buckets: prometheus.DefBuckets,
	})

	AlertedCustomers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alerted_customers",
		Help: "Customers flagged by the last alert evaluation, by priority",
	}, []string{"priority"})

	VisitListsExportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visit_lists_exported_total",
		Help: "Total number of exported visit lists",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
