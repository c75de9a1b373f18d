// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every engine metric behind one Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	OffersFetched       *prometheus.CounterVec
	SourceFailures      *prometheus.CounterVec
	MalformedDropped    prometheus.Counter
	DuplicatesCollapsed prometheus.Counter
	OffersIndexed       prometheus.Counter
	StoreWriteErrors    prometheus.Counter
	IndexSize           prometheus.Gauge
	JobDuration         *prometheus.HistogramVec
}

// NewRegistry builds and registers all collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	offersFetched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dealradar_offers_fetched_total",
		Help: "Raw offers returned by each source adapter.",
	}, []string{"source"})
	sourceFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dealradar_source_failures_total",
		Help: "Adapter calls that returned a classified failure.",
	}, []string{"source", "kind"})
	malformed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dealradar_malformed_dropped_total",
		Help: "Raw offers dropped because normalization failed.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dealradar_duplicates_collapsed_total",
		Help: "Offers absorbed into another representative by the deduper.",
	})
	indexed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dealradar_offers_indexed_total",
		Help: "Scored offers written to the index.",
	})
	writeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dealradar_store_write_errors_total",
		Help: "Record-store writes refused downstream.",
	})
	indexSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dealradar_index_size",
		Help: "Offers currently in the scored index.",
	})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dealradar_job_duration_seconds",
		Help:    "Wall time of scheduled job runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	r.MustRegister(offersFetched, sourceFailures, malformed, duplicates, indexed, writeErrors, indexSize, jobDuration)
	return &Registry{
		reg:                 r,
		OffersFetched:       offersFetched,
		SourceFailures:      sourceFailures,
		MalformedDropped:    malformed,
		DuplicatesCollapsed: duplicates,
		OffersIndexed:       indexed,
		StoreWriteErrors:    writeErrors,
		IndexSize:           indexSize,
		JobDuration:         jobDuration,
	}
}

// Handler serves the registry for scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
