package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/umapview/internal/logger"
)

// reloadDelay coalesces the burst of events editors emit on save.
const reloadDelay = 100 * time.Millisecond

// Watch reloads path whenever it is written or replaced and passes the new
// config to onChange. Invalid files are logged and skipped. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often save via rename, which drops a
	// watch placed on the file itself.
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	log := logger.Named("config")
	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != abs {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(reloadDelay)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))

		case <-timer.C:
			cfg, err := Reload(abs)
			if err != nil {
				log.Warn("ignoring invalid config", zap.String("path", abs), zap.Error(err))
				continue
			}
			log.Info("config reloaded", zap.String("path", abs))
			onChange(cfg)
		}
	}
}
