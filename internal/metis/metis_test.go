package metis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashibhat/safehaven-core/internal/config"
	"github.com/shashibhat/safehaven-core/internal/metis"
	"github.com/shashibhat/safehaven-core/internal/statemachine"
)

func TestHealthURL_DetectSuffixReplaced(t *testing.T) {
	assert.Equal(t, "http://metis-detector:8090/healthz", metis.HealthURL("http://metis-detector:8090/detect"))
}

func TestHealthURL_OtherPathGoesToRoot(t *testing.T) {
	assert.Equal(t, "http://metis-detector:8090/healthz", metis.HealthURL("http://metis-detector:8090/v2/infer"))
}

func TestDetect_ParsesArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([][]float64{
			{0, 0.92, 10, 10, 50, 50},
			{1, 0.3, 0, 0, 5, 5},
		})
	}))
	defer srv.Close()

	client := metis.NewClient(srv.URL, 2.5)
	dets, err := client.Detect(context.Background(), []byte("fake-jpeg"))
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, 0, dets[0].ClassID)
	assert.InDelta(t, 0.92, dets[0].Score, 0.0001)
}

func TestDetect_NonArrayResponseYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"error": "oops"})
	}))
	defer srv.Close()

	client := metis.NewClient(srv.URL, 2.5)
	dets, err := client.Detect(context.Background(), []byte("fake-jpeg"))
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestDetect_ErrorStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := metis.NewClient(srv.URL, 2.5)
	_, err := client.Detect(context.Background(), []byte("fake-jpeg"))
	assert.Error(t, err)
}

func TestReduceState_OpenWinsTieBreak(t *testing.T) {
	ids := config.ZoneClassIDs{Open: 0, Closed: 1}
	dets := []metis.Detection{
		{ClassID: 0, Score: 0.7},
		{ClassID: 1, Score: 0.7},
	}
	state, score := metis.ReduceState(dets, ids, 0.5)
	assert.Equal(t, statemachine.Open, state)
	assert.InDelta(t, 0.7, score, 0.0001)
}

func TestReduceState_BelowThresholdIsUnknown(t *testing.T) {
	ids := config.ZoneClassIDs{Open: 0, Closed: 1}
	dets := []metis.Detection{
		{ClassID: 0, Score: 0.2},
		{ClassID: 1, Score: 0.4},
	}
	state, score := metis.ReduceState(dets, ids, 0.5)
	assert.Equal(t, statemachine.Unknown, state)
	assert.Equal(t, 0.0, score)
}

func TestReduceState_ClosedWinsWhenHigher(t *testing.T) {
	ids := config.ZoneClassIDs{Open: 0, Closed: 1}
	dets := []metis.Detection{
		{ClassID: 0, Score: 0.6},
		{ClassID: 1, Score: 0.9},
	}
	state, score := metis.ReduceState(dets, ids, 0.5)
	assert.Equal(t, statemachine.Closed, state)
	assert.InDelta(t, 0.9, score, 0.0001)
}

func TestReduceState_IgnoresUnrelatedClassIDs(t *testing.T) {
	ids := config.ZoneClassIDs{Open: 0, Closed: 1}
	dets := []metis.Detection{
		{ClassID: 7, Score: 0.99},
	}
	state, _ := metis.ReduceState(dets, ids, 0.5)
	assert.Equal(t, statemachine.Unknown, state)
}
