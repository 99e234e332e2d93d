package emitter

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/shashibhat/safehaven-core/internal/config"
	"github.com/shashibhat/safehaven-core/internal/imaging"
	"github.com/shashibhat/safehaven-core/internal/metrics"
)

// Event is one semantic lifecycle event to emit.
type Event struct {
	Camera           string
	Label            string
	Score            float64
	Duration         int
	Extra            string // freeform context folded into sub_label, e.g. "zone=garage state=open"
	ROICrop          *imaging.Frame
	FullFrame        *imaging.Frame
	ROI              *config.ROI
	SaveEventMedia   bool
	IncludeRecording bool
}

// Emitter wires together the Frigate client and local evidence writer
// to implement the full event lifecycle: post the event, write local
// evidence, then best-effort fetch Frigate's own snapshot/clip.
type Emitter struct {
	Frigate  *FrigateClient
	Evidence *EvidenceWriter
}

// NewEmitter builds an Emitter over the given Frigate client and
// evidence root directory.
func NewEmitter(frigate *FrigateClient, evidenceDir string) *Emitter {
	return &Emitter{
		Frigate:  frigate,
		Evidence: NewEvidenceWriter(evidenceDir, frigate.Logger),
	}
}

// Emit records the metric, posts the Frigate event, writes local
// evidence if configured, and best-effort fetches Frigate's own
// snapshot/clip once an event id is known.
func (e *Emitter) Emit(ev Event) {
	metrics.RecordEvent(ev.Camera, ev.Label)

	correlationID := uuid.NewString()
	subLabel := fmt.Sprintf("%s conf=%.2f source=metis", ev.Extra, ev.Score)
	e.Frigate.Logger.Info("emitter: semantic event",
		"correlation_id", correlationID, "camera", ev.Camera, "label", ev.Label,
		"score", ev.Score, "duration", ev.Duration, "sub_label", subLabel)

	var draw *Draw
	if ev.ROI != nil {
		draw = &Draw{
			Boxes: []DrawBox{{
				Box:   [4]float64{ev.ROI.X, ev.ROI.Y, ev.ROI.W, ev.ROI.H},
				Color: [3]int{0, 255, 0},
				Score: int(ev.Score*100.0 + 0.5),
			}},
		}
	}

	eventID := e.Frigate.CreateEvent(ev.Camera, ev.Label, subLabel, ev.Score, ev.Duration, ev.IncludeRecording, draw)
	e.Frigate.Logger.Info("emitter: event dispatched", "correlation_id", correlationID, "event_id", eventID)

	if ev.SaveEventMedia && ev.ROICrop != nil {
		if _, err := e.Evidence.Write(ev.Camera, ev.Label, *ev.ROICrop, ev.FullFrame, ev.ROI, ev.Score, time.Now()); err != nil {
			e.Frigate.Logger.Warn("emitter: write evidence failed", "correlation_id", correlationID, "err", err)
		}
	}

	if ev.SaveEventMedia && eventID != "" {
		outDir := fmt.Sprintf("%s/%s/%s", e.Evidence.BaseDir, ev.Camera, ev.Label)
		e.Frigate.FetchEventMedia(eventID, outDir, func(dir string) error {
			return os.MkdirAll(dir, 0o755)
		}, func(path string, data []byte) error {
			return os.WriteFile(path, data, 0o644)
		})
	}
}
