// Command safehaven-core samples RTSP cameras, classifies configured
// zones via an external Metis detector, and emits debounced semantic
// state events to Frigate.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shashibhat/safehaven-core/internal/config"
	"github.com/shashibhat/safehaven-core/internal/emitter"
	"github.com/shashibhat/safehaven-core/internal/health"
	"github.com/shashibhat/safehaven-core/internal/logging"
	"github.com/shashibhat/safehaven-core/internal/metis"
	"github.com/shashibhat/safehaven-core/internal/sampler"
	"github.com/shashibhat/safehaven-core/internal/supervisor"
	"github.com/shashibhat/safehaven-core/internal/worker"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// 2. Logging
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Config file watch (advisory only; never hot-reloads)
	config.Watch(ctx, cfg, logger)

	// 4. Health/readiness surface, metrics surface, and dependency probe
	readiness := health.NewReadinessState()
	healthSrv := &http.Server{Addr: ":" + strconv.Itoa(cfg.HealthPort), Handler: health.NewServer(readiness)}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server stopped", "err", err)
		}
	}()

	metricsSrv := &http.Server{Addr: ":" + strconv.Itoa(cfg.MetricsPort), Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", "err", err)
		}
	}()

	go health.RunProbe(ctx, cfg.FrigateBaseURL, metis.HealthURL(cfg.MetisDetectorURL), readiness)

	// 5. Shared collaborators
	frigate := emitter.NewFrigateClient(cfg.FrigateBaseURL, logger)
	em := emitter.NewEmitter(frigate, cfg.EvidenceDir)
	detector := metis.NewClient(cfg.MetisDetectorURL, cfg.MetisTimeoutS)

	// 6. Boot event
	if cfg.EmitBootEvent && len(cfg.Cameras) > 0 {
		first := cfg.Cameras[0]
		var roi *config.ROI
		if r, ok := first.ROIs[cfg.DemoZone]; ok {
			roi = &r
		}
		em.Emit(emitter.Event{
			Camera:           first.Name,
			Label:            "safehaven_boot",
			Score:            1.0,
			Duration:         5,
			Extra:            "source=safehaven-core",
			ROI:              roi,
			SaveEventMedia:   false,
			IncludeRecording: true,
		})
	}

	// 7. Per-camera sampler and worker goroutines
	for _, cam := range cfg.Cameras {
		camCfg := cam
		q := sampler.NewLatestQueue(cfg.QueueMax)

		go supervisor.Supervise(ctx, "sampler-"+camCfg.Name, logger, func(ctx context.Context) {
			sampler.Run(ctx, camCfg.Name, cfg.SampleFPS, func() (sampler.VideoSource, error) {
				return sampler.NewRTSPSource(camCfg.StreamURL, cfg.RTSPTransport)
			}, q, logger)
		})

		runtimeCam := worker.NewCamera(camCfg.Name, camCfg.ROIs, cfg.LeftOpenMinutes)
		go supervisor.Supervise(ctx, "worker-"+camCfg.Name, logger, func(ctx context.Context) {
			worker.Run(ctx, runtimeCam, q, worker.Deps{
				Config:   cfg,
				Detector: detector,
				Emitter:  em,
				Logger:   logger,
			})
		})
	}

	names := make([]string, len(cfg.Cameras))
	for i, c := range cfg.Cameras {
		names[i] = c.Name
	}
	logger.Info("safehaven-core started",
		"cameras", names, "metrics_port", cfg.MetricsPort, "health_port", cfg.HealthPort,
		"log_format", cfg.LogFormat, "pid", os.Getpid())

	select {}
}
