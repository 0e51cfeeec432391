// Package stats keeps run counters in memory and mirrors them to Prometheus
// collectors that can be written to a textfile at the end of a run.
package stats

import (
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/receiptexporter/receiptexporter/internal/pkg/utils"
)

type stats struct {
	ItemsDispatched    *counter
	DocumentsSucceeded *counter
	DocumentsFailed    *counter
	BytesSaved         *counter
	MeanFetchTime      *durationMean
}

var (
	globalStats     *stats
	globalPromStats *prometheusStats
	doOnce          sync.Once
	mu              sync.RWMutex

	runID    string
	hostname string
	version  string
)

// Init sets up the counters. prefix is prepended to every Prometheus metric name.
func Init(prefix, run string) error {
	var done = false

	doOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()

		globalStats = &stats{
			ItemsDispatched:    &counter{},
			DocumentsSucceeded: &counter{},
			DocumentsFailed:    &counter{},
			BytesSaved:         &counter{},
			MeanFetchTime:      &durationMean{},
		}

		runID = run
		hostname, _ = os.Hostname()
		version = utils.GetVersion().Version

		globalPromStats = newPrometheusStats(prefix)
		done = true
	})

	if !done {
		return ErrStatsAlreadyInitialized
	}

	return nil
}

func get() *stats {
	mu.RLock()
	defer mu.RUnlock()
	return globalStats
}

// Reset zeroes every in-memory counter.
func Reset() {
	s := get()
	if s == nil {
		return
	}
	s.ItemsDispatched.reset()
	s.DocumentsSucceeded.reset()
	s.DocumentsFailed.reset()
	s.BytesSaved.reset()
	s.MeanFetchTime.reset()
}

// ItemDispatchedIncr counts one work item handed to the worker.
func ItemDispatchedIncr(docType string) {
	s := get()
	if s == nil {
		return
	}
	s.ItemsDispatched.incr(1)
	globalPromStats.itemsDispatched.WithLabelValues(runID, hostname, version, docType).Inc()
}

// DocumentSucceeded records a saved document of the given size.
func DocumentSucceeded(docType string, bytes int, took time.Duration) {
	s := get()
	if s == nil {
		return
	}
	s.DocumentsSucceeded.incr(1)
	s.BytesSaved.incr(uint64(bytes))
	s.MeanFetchTime.observe(took)
	globalPromStats.documentsSucceeded.WithLabelValues(runID, hostname, version, docType).Inc()
	globalPromStats.bytesSaved.WithLabelValues(runID, hostname, version).Add(float64(bytes))
	globalPromStats.fetchTime.WithLabelValues(runID, hostname, version, docType).Observe(took.Seconds())
}

// DocumentFailed records a document that could not be produced or saved.
func DocumentFailed(docType string, took time.Duration) {
	s := get()
	if s == nil {
		return
	}
	s.DocumentsFailed.incr(1)
	s.MeanFetchTime.observe(took)
	globalPromStats.documentsFailed.WithLabelValues(runID, hostname, version, docType).Inc()
	globalPromStats.fetchTime.WithLabelValues(runID, hostname, version, docType).Observe(took.Seconds())
}

func DocumentsSucceededGet() uint64 { return get().DocumentsSucceeded.get() }
func DocumentsFailedGet() uint64    { return get().DocumentsFailed.get() }
func BytesSavedGet() uint64         { return get().BytesSaved.get() }

// GetMap returns a map of the current stats for the summary table.
func GetMap() map[string]interface{} {
	s := get()
	if s == nil {
		return map[string]interface{}{}
	}

	return map[string]interface{}{
		"Items dispatched": s.ItemsDispatched.get(),
		"Documents saved":  s.DocumentsSucceeded.get(),
		"Documents failed": s.DocumentsFailed.get(),
		"Bytes saved":      humanize.Bytes(s.BytesSaved.get()),
		"Mean fetch time":  s.MeanFetchTime.get().Round(time.Millisecond).String(),
	}
}

// Registry returns the Prometheus registry holding the run collectors.
func Registry() *prometheus.Registry {
	if globalPromStats == nil {
		return nil
	}
	return globalPromStats.registry
}
