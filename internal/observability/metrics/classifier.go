// Package metrics provides custom Prometheus metrics for the image analyzer components.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClassifierMetrics tracks dispatches, label resolution and record persistence.
// It implements classifier.DispatchMetrics and labels.Metrics.
type ClassifierMetrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	labelsCreated    prometheus.Counter
	labelCacheHits   prometheus.Counter
	labelCacheMisses prometheus.Counter
	persistedTotal   *prometheus.CounterVec
}

// NewClassifierMetrics creates ClassifierMetrics and registers them with registry.
func NewClassifierMetrics(registry prometheus.Registerer) (*ClassifierMetrics, error) {
	m := &ClassifierMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register classifier metrics: %w", err)
	}
	return m, nil
}

func (m *ClassifierMetrics) initMetrics() {
	m.dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_dispatch_total",
			Help: "Total number of classification dispatches",
		},
		[]string{"provider", "outcome"}, // outcome: success or a failure reason
	)

	m.dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_dispatch_duration_seconds",
			Help:    "Time taken by a dispatch including label resolution",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
		[]string{"provider"},
	)

	m.labelsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classifier_labels_created_total",
		Help: "Total number of labels registered on first sighting",
	})

	m.labelCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classifier_label_cache_hits_total",
		Help: "Total number of label lookups served from cache",
	})

	m.labelCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "classifier_label_cache_misses_total",
		Help: "Total number of label lookups that reached the store",
	})

	m.persistedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_records_persisted_total",
			Help: "Total number of analysis records written to the log store",
		},
		[]string{"status"},
	)
}

// RecordDispatch counts one dispatch and observes its duration.
func (m *ClassifierMetrics) RecordDispatch(provider, outcome string, duration time.Duration) {
	m.dispatchTotal.WithLabelValues(provider, outcome).Inc()
	m.dispatchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordLabelCreated counts a newly registered label.
func (m *ClassifierMetrics) RecordLabelCreated() { m.labelsCreated.Inc() }

// RecordLabelCacheHit counts a cached label lookup.
func (m *ClassifierMetrics) RecordLabelCacheHit() { m.labelCacheHits.Inc() }

// RecordLabelCacheMiss counts a label lookup that reached the store.
func (m *ClassifierMetrics) RecordLabelCacheMiss() { m.labelCacheMisses.Inc() }

// RecordPersisted counts an analysis record write.
func (m *ClassifierMetrics) RecordPersisted(err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.persistedTotal.WithLabelValues(status).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *ClassifierMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.dispatchTotal.Describe(ch)
	m.dispatchDuration.Describe(ch)
	ch <- m.labelsCreated.Desc()
	ch <- m.labelCacheHits.Desc()
	ch <- m.labelCacheMisses.Desc()
	m.persistedTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ClassifierMetrics) Collect(ch chan<- prometheus.Metric) {
	m.dispatchTotal.Collect(ch)
	m.dispatchDuration.Collect(ch)
	ch <- m.labelsCreated
	ch <- m.labelCacheHits
	ch <- m.labelCacheMisses
	m.persistedTotal.Collect(ch)
}
