package tasks

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 400 * time.Millisecond

// ConfigWatcher enqueues a configuration reload when a feed source file in
// dir is created, changed or removed. Bursts of events collapse into one
// reload.
type ConfigWatcher struct {
	dir       string
	configs   ConfigReloader
	scheduler TaskSchedulerInterface
	debounce  time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewConfigWatcher(dir string, configs ConfigReloader, scheduler TaskSchedulerInterface) *ConfigWatcher {
	return &ConfigWatcher{
		dir:       dir,
		configs:   configs,
		scheduler: scheduler,
		debounce:  defaultDebounce,
	}
}

// Start watches until ctx is done.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}

	slog.Info("Watching feed configurations", "dir", w.dir)

	go w.run(ctx, watcher)
	return nil
}

func (w *ConfigWatcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".yml" || ev.Op == fsnotify.Chmod {
				continue
			}
			slog.Debug("Feed configuration changed", "op", ev.Op.String(), "path", ev.Name)
			w.schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Configuration watcher error", "error", err)
		}
	}
}

func (w *ConfigWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.scheduler.EnqueueTask(NewReloadConfigTask(w.configs, TriggerFileWatch)); err != nil {
			slog.Warn("Failed to enqueue ReloadConfigTask", "error", err)
		}
	})
}
