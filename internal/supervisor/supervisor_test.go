package supervisor_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashibhat/safehaven-core/internal/supervisor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSupervise_RestartsAfterPanic(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		supervisor.Supervise(ctx, "test-worker", testLogger(), func(ctx context.Context) {
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				panic("boom")
			}
			<-ctx.Done()
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, 4*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestSupervise_ReturnsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		supervisor.Supervise(ctx, "test-worker", testLogger(), func(ctx context.Context) {
			<-ctx.Done()
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Supervise did not return promptly after context cancellation")
	}
}
