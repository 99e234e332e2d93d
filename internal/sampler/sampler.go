package sampler

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/shashibhat/safehaven-core/internal/metrics"
)

// SourceFactory opens a fresh VideoSource for a camera's stream URL,
// reconnecting is just calling it again.
type SourceFactory func() (VideoSource, error)

// Run drives one camera's sampling loop: open (with capped exponential
// backoff on failure), pull a frame, push it into q, sleep out the
// remainder of the sample interval, and repeat. Run blocks until ctx
// is canceled.
func Run(ctx context.Context, cameraName string, sampleFPS float64, open SourceFactory, q *LatestQueue, logger *slog.Logger) {
	interval := time.Duration(float64(time.Second) / math.Max(sampleFPS, 0.1))
	backoff := time.Second
	const maxBackoff = 10 * time.Second

	var src VideoSource
	defer func() {
		if src != nil {
			src.Close()
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		if src == nil {
			var err error
			src, err = open()
			if err != nil {
				logger.Warn("sampler: failed to open stream", "camera", cameraName, "err", err)
				if !sleepCtx(ctx, backoff) {
					return
				}
				backoff = nextBackoff(backoff, maxBackoff)
				continue
			}
			backoff = time.Second
		}

		start := time.Now()
		frame, err := src.Next(ctx)
		if err != nil {
			logger.Warn("sampler: stream read failed, reconnecting", "camera", cameraName, "err", err)
			src.Close()
			src = nil
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		dropped := q.Put(Sample{Frame: frame, CapturedAt: start})
		metrics.RecordDropped(cameraName, dropped)
		metrics.SetQueueDepth(cameraName, q.Depth())

		elapsed := time.Since(start)
		if remaining := interval - elapsed; remaining > 0 {
			if !sleepCtx(ctx, remaining) {
				return
			}
		}
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// sleepCtx sleeps for d or returns false early if ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
