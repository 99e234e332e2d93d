package sampler_test

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashibhat/safehaven-core/internal/imaging"
	"github.com/shashibhat/safehaven-core/internal/sampler"
)

type fakeSource struct {
	reads  int32
	failAt int32
}

func (f *fakeSource) Next(ctx context.Context) (imaging.Frame, error) {
	n := atomic.AddInt32(&f.reads, 1)
	if f.failAt > 0 && n == f.failAt {
		return imaging.Frame{}, errors.New("simulated read failure")
	}
	return imaging.Frame{Img: image.NewRGBA(image.Rect(0, 0, 4, 4))}, nil
}

func (f *fakeSource) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_PushesFramesUntilCanceled(t *testing.T) {
	q := sampler.NewLatestQueue(4)
	src := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())

	go sampler.Run(ctx, "cam1", 1000, func() (sampler.VideoSource, error) {
		return src, nil
	}, q, testLogger())

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	assert.Greater(t, int(atomic.LoadInt32(&src.reads)), 0)
}

func TestRun_RetriesOpenOnFailure(t *testing.T) {
	q := sampler.NewLatestQueue(4)
	var attempts int32
	ctx, cancel := context.WithCancel(context.Background())

	go sampler.Run(ctx, "cam1", 1000, func() (sampler.VideoSource, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			return nil, errors.New("dial failed")
		}
		return &fakeSource{}, nil
	}, q, testLogger())

	deadline := time.After(3 * time.Second)
	for atomic.LoadInt32(&attempts) < 2 {
		select {
		case <-deadline:
			t.Fatal("open was not retried after failure")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
}
