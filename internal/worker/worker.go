// Package worker runs the per-camera inference-and-decision loop: crop
// each configured zone, call Metis, reduce to a zone observation, feed
// the zone's state machine, and emit any resulting events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shashibhat/safehaven-core/internal/config"
	"github.com/shashibhat/safehaven-core/internal/emitter"
	"github.com/shashibhat/safehaven-core/internal/imaging"
	"github.com/shashibhat/safehaven-core/internal/metis"
	"github.com/shashibhat/safehaven-core/internal/metrics"
	"github.com/shashibhat/safehaven-core/internal/sampler"
	"github.com/shashibhat/safehaven-core/internal/statemachine"
)

// Detector is the subset of metis.Client this package depends on, so
// tests can substitute a fake.
type Detector interface {
	Detect(ctx context.Context, jpegBytes []byte) ([]metis.Detection, error)
}

// Camera is the per-camera runtime state the worker operates on.
type Camera struct {
	Name     string
	ROIs     map[string]config.ROI
	Machines map[string]*statemachine.Machine
}

// NewCamera builds per-zone state machines for every ROI the camera
// defines that also has a built-in zone spec (garage/gate/latch).
func NewCamera(name string, rois map[string]config.ROI, leftOpenMinutes int) *Camera {
	leftOpenSeconds := float64(leftOpenMinutes) * 60.0
	machines := make(map[string]*statemachine.Machine)
	for zone := range rois {
		spec, ok := config.ZoneSpecs[zone]
		if !ok {
			continue
		}
		machines[zone] = statemachine.New(zone, spec.OpenEvent, spec.CloseEvent, spec.LeftOpenEvent, leftOpenSeconds)
	}
	return &Camera{Name: name, ROIs: rois, Machines: machines}
}

// Deps bundles the worker's external collaborators.
type Deps struct {
	Config   *config.AppConfig
	Detector Detector
	Emitter  *emitter.Emitter
	Logger   *slog.Logger
}

// Run pulls samples from q forever, running the per-zone decision
// pipeline on each one, until ctx is canceled.
func Run(ctx context.Context, cam *Camera, q *sampler.LatestQueue, deps Deps) {
	debugCounter := 0
	var lastDemoEmit time.Time

	for {
		if ctx.Err() != nil {
			return
		}

		sample, err := q.GetContext(ctx)
		if err != nil {
			return
		}
		metrics.SetQueueDepth(cam.Name, q.Depth())
		now := time.Now()

		for zone, roi := range cam.ROIs {
			machine, ok := cam.Machines[zone]
			if !ok {
				continue
			}
			ids, ok := deps.Config.ZoneClassMap[zone]
			if !ok {
				continue
			}

			observed, score, roiCrop := classifyZone(ctx, deps, cam.Name, zone, sample.Frame, roi, ids)

			out := machine.Update(observed, now)
			debugCounter++
			if deps.Config.DebugStateEvery > 0 && debugCounter%deps.Config.DebugStateEvery == 0 {
				deps.Logger.Info("worker: state debug",
					"camera", cam.Name, "zone", zone, "observed", observed, "score", score,
					"threshold", deps.Config.StateConfThreshold, "current_state", machine.State())
			}

			if out.TransitionEvent != "" {
				deps.Emitter.Emit(emitter.Event{
					Camera: cam.Name, Label: out.TransitionEvent, Score: score, Duration: 15,
					Extra:            "zone=" + zone + " state=" + string(observed),
					ROICrop:          roiCrop,
					FullFrame:        &sample.Frame,
					ROI:              &roi,
					SaveEventMedia:   deps.Config.SaveEventMedia,
					IncludeRecording: true,
				})
			}
			if out.LeftOpenEvent != "" {
				leftOpenScore := score
				if leftOpenScore < 0.5 {
					leftOpenScore = 0.5
				}
				openForMinutes := int(machine.LeftOpenSeconds / 60.0)
				deps.Emitter.Emit(emitter.Event{
					Camera: cam.Name, Label: out.LeftOpenEvent, Score: leftOpenScore, Duration: 30,
					Extra:            fmt.Sprintf("zone=%s open_for=%dm", zone, openForMinutes),
					ROICrop:          roiCrop,
					FullFrame:        &sample.Frame,
					ROI:              &roi,
					SaveEventMedia:   deps.Config.SaveEventMedia,
					IncludeRecording: true,
				})
			}

			if shouldDemoEmit(deps.Config, zone, observed, now, lastDemoEmit) {
				demoLabel := zone + "_" + string(observed) + "_status"
				duration := deps.Config.DemoEmitIntervalS
				if duration < 5 {
					duration = 5
				}
				deps.Emitter.Emit(emitter.Event{
					Camera: cam.Name, Label: demoLabel, Score: score, Duration: duration,
					Extra:            "demo=true zone=" + zone + " observed=" + string(observed),
					ROICrop:          roiCrop,
					FullFrame:        &sample.Frame,
					ROI:              &roi,
					SaveEventMedia:   deps.Config.SaveEventMedia,
					IncludeRecording: true,
				})
				lastDemoEmit = now
			}
		}

		metrics.RecordE2E(float64(time.Since(sample.CapturedAt).Milliseconds()))
	}
}

func shouldDemoEmit(cfg *config.AppConfig, zone string, observed statemachine.ZoneState, now, lastDemoEmit time.Time) bool {
	if cfg.DemoEmitIntervalS <= 0 || zone != cfg.DemoZone || observed == statemachine.Unknown {
		return false
	}
	return now.Sub(lastDemoEmit) >= time.Duration(cfg.DemoEmitIntervalS)*time.Second
}

// classifyZone crops the zone, calls the detector, and reduces the
// result to an observation. Any failure (crop or detect) is treated as
// an unknown observation rather than propagated, so one bad frame
// never stalls a camera's worker loop.
func classifyZone(ctx context.Context, deps Deps, camera, zone string, frame imaging.Frame, roi config.ROI, ids config.ZoneClassIDs) (statemachine.ZoneState, float64, *imaging.Frame) {
	roiCrop, err := imaging.CropROI(frame, roi)
	if err != nil {
		deps.Logger.Warn("worker: crop failed", "camera", camera, "zone", zone, "err", err)
		return statemachine.Unknown, 0.0, nil
	}

	jpegBytes, err := imaging.EncodeJPEG(roiCrop, 90)
	if err != nil {
		deps.Logger.Warn("worker: encode failed", "camera", camera, "zone", zone, "err", err)
		return statemachine.Unknown, 0.0, &roiCrop
	}

	start := time.Now()
	detections, err := deps.Detector.Detect(ctx, jpegBytes)
	metrics.RecordInfer(float64(time.Since(start).Milliseconds()))
	if err != nil {
		deps.Logger.Warn("worker: inference error", "camera", camera, "zone", zone, "err", err)
		return statemachine.Unknown, 0.0, &roiCrop
	}

	observed, score := metis.ReduceState(detections, ids, deps.Config.StateConfThreshold)
	return observed, score, &roiCrop
}
