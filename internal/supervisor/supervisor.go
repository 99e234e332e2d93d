// Package supervisor keeps a named long-running goroutine alive: if it
// panics, the panic is logged and the goroutine is restarted after a
// short delay instead of taking the whole process down.
package supervisor

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// restartDelay separates a crash from its restart so a persistently
// broken goroutine doesn't spin the CPU.
const restartDelay = 2 * time.Second

// Supervise runs fn in a loop under ctx, recovering from any panic and
// restarting fn after restartDelay. It returns once ctx is canceled and
// fn has returned normally (without panicking) on its current run, or
// immediately if fn returns without panicking and ctx is already done.
func Supervise(ctx context.Context, name string, logger *slog.Logger, fn func(ctx context.Context)) {
	for {
		if ctx.Err() != nil {
			return
		}
		runOnce(ctx, name, logger, fn)
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

func runOnce(ctx context.Context, name string, logger *slog.Logger, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("supervisor: goroutine panicked, restarting",
				"name", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn(ctx)
}
