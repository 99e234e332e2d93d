// Package metrics declares the process-wide Prometheus collectors for
// safehaven-core and small helper functions for recording them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All metrics are per-camera at most; none carry a zone label, to keep
// cardinality bounded by the number of configured cameras.

var (
	// InferMS tracks Metis detector round-trip latency.
	InferMS = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infer_ms",
			Help:    "Metis detector call latency in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		},
	)

	// E2EMS tracks the time from frame sample to decision completion.
	E2EMS = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "e2e_ms",
			Help:    "End-to-end latency from sample to decision, in milliseconds",
			Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000},
		},
	)

	// QueueDepth is the current depth of a camera's latest-frame queue.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current depth of the per-camera sample queue",
		},
		[]string{"camera"},
	)

	// DroppedSamples counts frames evicted from the queue before being
	// consumed by the worker.
	DroppedSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropped_samples_total",
			Help: "Total frames dropped from the sample queue due to backpressure",
		},
		[]string{"camera"},
	)

	// SemanticEvents counts every Frigate lifecycle event emitted, by
	// camera and event type.
	SemanticEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semantic_events_total",
			Help: "Total semantic events emitted, by camera and event type",
		},
		[]string{"camera", "type"},
	)
)

// RecordInfer observes one Metis call's latency.
func RecordInfer(ms float64) {
	InferMS.Observe(ms)
}

// RecordE2E observes one sample-to-decision latency.
func RecordE2E(ms float64) {
	E2EMS.Observe(ms)
}

// SetQueueDepth updates the current queue depth gauge for a camera.
func SetQueueDepth(camera string, depth int) {
	QueueDepth.WithLabelValues(camera).Set(float64(depth))
}

// RecordDropped adds n dropped samples for a camera.
func RecordDropped(camera string, n int) {
	if n <= 0 {
		return
	}
	DroppedSamples.WithLabelValues(camera).Add(float64(n))
}

// RecordEvent increments the semantic-event counter for a camera/type pair.
func RecordEvent(camera, eventType string) {
	SemanticEvents.WithLabelValues(camera, eventType).Inc()
}
