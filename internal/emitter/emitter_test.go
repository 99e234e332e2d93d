package emitter_test

import (
	"encoding/json"
	"image"
	"image/color"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashibhat/safehaven-core/internal/config"
	"github.com/shashibhat/safehaven-core/internal/emitter"
	"github.com/shashibhat/safehaven-core/internal/imaging"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solidFrame(w, h int) imaging.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return imaging.Frame{Img: img}
}

func TestCreateEvent_Success(t *testing.T) {
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"event_id": "evt-123"})
	}))
	defer srv.Close()

	client := emitter.NewFrigateClient(srv.URL, testLogger())
	id := client.CreateEvent("driveway", "garage_opened", "zone=garage conf=0.90 source=metis", 0.9, 15, true, nil)

	assert.Equal(t, "evt-123", id)
	assert.Equal(t, "/api/events/driveway/garage_opened/create", capturedPath)
}

func TestCreateEvent_FailureReturnsEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := emitter.NewFrigateClient(srv.URL, testLogger())
	id := client.CreateEvent("driveway", "garage_opened", "sub", 0.9, 15, true, nil)
	assert.Empty(t, id)
}

func TestEmit_WritesEvidenceFiles(t *testing.T) {
	dir := t.TempDir()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"event_id": ""})
	}))
	defer srv.Close()

	client := emitter.NewFrigateClient(srv.URL, testLogger())
	em := emitter.NewEmitter(client, dir)

	roiCrop := solidFrame(20, 20)
	full := solidFrame(320, 240)
	roi := config.ROI{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}

	em.Emit(emitter.Event{
		Camera:           "driveway",
		Label:            "garage_opened",
		Score:            0.87,
		Duration:         15,
		Extra:            "zone=garage state=open",
		ROICrop:          &roiCrop,
		FullFrame:        &full,
		ROI:              &roi,
		SaveEventMedia:   true,
		IncludeRecording: true,
	})

	entries, err := os.ReadDir(filepath.Join(dir, "driveway", "garage_opened"))
	require.NoError(t, err)
	assert.Len(t, entries, 2) // {ts}_roi.jpg and {ts}_full.jpg
}
