package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleCount returns how many observations h has recorded so far.
func sampleCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestRecordInfer_ObservesHistogram(t *testing.T) {
	before := sampleCount(t, InferMS)
	RecordInfer(12.5)
	after := sampleCount(t, InferMS)
	assert.Equal(t, before+1, after)
}

func TestRecordE2E_ObservesHistogram(t *testing.T) {
	before := sampleCount(t, E2EMS)
	RecordE2E(42)
	after := sampleCount(t, E2EMS)
	assert.Equal(t, before+1, after)
}

func TestSetQueueDepth_UpdatesGauge(t *testing.T) {
	SetQueueDepth("driveway", 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(QueueDepth.WithLabelValues("driveway")))

	SetQueueDepth("driveway", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(QueueDepth.WithLabelValues("driveway")))
}

func TestRecordDropped_AddsToCounter(t *testing.T) {
	before := testutil.ToFloat64(DroppedSamples.WithLabelValues("backyard"))
	RecordDropped("backyard", 3)
	after := testutil.ToFloat64(DroppedSamples.WithLabelValues("backyard"))
	assert.Equal(t, before+3, after)
}

func TestRecordDropped_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(DroppedSamples.WithLabelValues("frontyard"))
	RecordDropped("frontyard", 0)
	RecordDropped("frontyard", -1)
	after := testutil.ToFloat64(DroppedSamples.WithLabelValues("frontyard"))
	assert.Equal(t, before, after)
}

func TestRecordEvent_IncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(SemanticEvents.WithLabelValues("garage_cam", "garage_opened"))
	RecordEvent("garage_cam", "garage_opened")
	after := testutil.ToFloat64(SemanticEvents.WithLabelValues("garage_cam", "garage_opened"))
	assert.Equal(t, before+1, after)
}
