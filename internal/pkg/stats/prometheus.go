package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

type prometheusStats struct {
	registry           *prometheus.Registry
	itemsDispatched    *prometheus.CounterVec
	documentsSucceeded *prometheus.CounterVec
	documentsFailed    *prometheus.CounterVec
	bytesSaved         *prometheus.CounterVec
	fetchTime          *prometheus.HistogramVec // in seconds
}

func newPrometheusStats(prefix string) *prometheusStats {
	p := &prometheusStats{
		registry: prometheus.NewRegistry(),
		itemsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: prefix + "items_dispatched", Help: "Total number of work items dispatched to the worker"},
			[]string{"run", "hostname", "version", "type"},
		),
		documentsSucceeded: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: prefix + "documents_saved", Help: "Total number of documents saved"},
			[]string{"run", "hostname", "version", "type"},
		),
		documentsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: prefix + "documents_failed", Help: "Total number of documents that failed"},
			[]string{"run", "hostname", "version", "type"},
		),
		bytesSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: prefix + "bytes_saved", Help: "Total number of bytes written by the sink"},
			[]string{"run", "hostname", "version"},
		),
		fetchTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: prefix + "fetch_seconds", Help: "Time spent producing one document", Buckets: prometheus.ExponentialBucketsRange(0.1, 60, 20)},
			[]string{"run", "hostname", "version", "type"},
		),
	}

	p.registry.MustRegister(p.itemsDispatched)
	p.registry.MustRegister(p.documentsSucceeded)
	p.registry.MustRegister(p.documentsFailed)
	p.registry.MustRegister(p.bytesSaved)
	p.registry.MustRegister(p.fetchTime)

	return p
}

// WriteTextfile writes the collectors in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if globalPromStats == nil {
		return ErrStatsNotInitialized
	}
	if path == "" {
		return ErrNoMetricsPath
	}
	return prometheus.WriteToTextfile(path, globalPromStats.registry)
}
