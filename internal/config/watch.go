package config

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

func modTimeOrZero(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Watch monitors the config file named by cfg.Path and logs a warning when
// it changes on disk. SafeHaven-Core wires cameras into long-lived
// goroutines at startup, so a changed file is never hot-applied; the
// watcher exists purely to shorten the feedback loop for an operator who
// edited the file and is waiting to see whether a restart picked it up.
func Watch(ctx context.Context, cfg *AppConfig, logger *slog.Logger) {
	watcher, err := fsnotify.NewWatcher()
	usePolling := false

	if err != nil {
		logger.Warn("config watcher: fsnotify unavailable, falling back to polling", "err", err)
		usePolling = true
	} else if err := watcher.Add(cfg.Path); err != nil {
		logger.Warn("config watcher: failed to watch file, falling back to polling", "path", cfg.Path, "err", err)
		usePolling = true
		watcher.Close()
	}

	if usePolling {
		go pollLoop(ctx, cfg.Path, logger)
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					time.Sleep(100 * time.Millisecond) // debounce editor save-as-rename-then-write
					logger.Warn("config file changed on disk; restart safehaven-core to apply", "path", cfg.Path)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "err", err)
			}
		}
	}()
}

func pollLoop(ctx context.Context, path string, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	lastMod := modTimeOrZero(path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := modTimeOrZero(path)
			if !cur.IsZero() && cur != lastMod {
				lastMod = cur
				logger.Warn("config file changed on disk; restart safehaven-core to apply", "path", path)
			}
		}
	}
}
