package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported by the pipeline.
var Registry = prometheus.NewRegistry()

var (
	TripsLoaded = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "citibike",
		Name:      "trips_loaded_total",
		Help:      "Raw trip rows bulk loaded, by table.",
	}, []string{"table"})

	FragmentsSkipped = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: "citibike",
		Name:      "fragments_skipped_total",
		Help:      "File fragments skipped because of a schema mismatch.",
	})

	RouteMutations = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "citibike",
		Name:      "route_mutations_total",
		Help:      "Committed most_used_routes writes, by kind (insert|update).",
	}, []string{"kind"})

	BatchDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "citibike",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of aggregate batches.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"mode", "outcome"})

	HTTPRequests = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "citibike",
		Name:      "http_requests_total",
		Help:      "API requests, by matched route and status class.",
	}, []string{"route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
