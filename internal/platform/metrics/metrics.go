package metrics

import (
	"net/http"

	"github.com/marketworks/listing-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus instruments on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	ListingsCreatedTotal    prometheus.Counter
	ListingUpdatesTotal     prometheus.Counter
	ListingDeletesTotal     prometheus.Counter
	MediaStoredTotal        prometheus.Counter
	MediaDeletedTotal       prometheus.Counter
	CompensationsTotal      prometheus.Counter
	IndexErrorsTotal        *prometheus.CounterVec
	SearchQueriesTotal      prometheus.Counter
	SearchFallbacksTotal    prometheus.Counter
	ReindexRunsTotal        prometheus.Counter
	OperationLatencySeconds *prometheus.HistogramVec
}

// New registers the service instruments under the given namespace.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		ListingsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_created_total",
			Help:      "Total number of listings created.",
		}),
		ListingUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_updates_total",
			Help:      "Total number of listings updated.",
		}),
		ListingDeletesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_deletes_total",
			Help:      "Total number of listings deleted.",
		}),
		MediaStoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_stored_total",
			Help:      "Total number of media files written to storage.",
		}),
		MediaDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_deleted_total",
			Help:      "Total number of media files removed from storage.",
		}),
		CompensationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_compensations_total",
			Help:      "Total number of compensating cleanups after a partial failure.",
		}),
		IndexErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_errors_total",
			Help:      "Total number of swallowed search index errors by operation.",
		}, []string{"operation"}),
		SearchQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Total number of search calls served.",
		}),
		SearchFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallbacks_total",
			Help:      "Total number of searches served from the system of record after an index failure.",
		}),
		ReindexRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_runs_total",
			Help:      "Total number of full reindex runs.",
		}),
		OperationLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of coordinator operations by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	registry.MustRegister(
		m.ListingsCreatedTotal,
		m.ListingUpdatesTotal,
		m.ListingDeletesTotal,
		m.MediaStoredTotal,
		m.MediaDeletedTotal,
		m.CompensationsTotal,
		m.IndexErrorsTotal,
		m.SearchQueriesTotal,
		m.SearchFallbacksTotal,
		m.ReindexRunsTotal,
		m.OperationLatencySeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// StartServer exposes the registry on /metrics. Blocks; run in a goroutine.
func StartServer(port string, m *Metrics, log logger.Logger) error {
	if port == "" {
		log.Info("metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	log.Infof("metrics server starting on :%s/metrics", port)
	server := &http.Server{Addr: ":" + port, Handler: mux}
	return server.ListenAndServe()
}
