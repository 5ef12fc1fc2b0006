package presets

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads the store whenever its file is written, created or renamed
// into place, until ctx is cancelled. The parent directory is watched so
// editors that replace the file atomically are picked up.
// onReload (if non-nil) is called after every successful reload.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger, onReload func(n int)) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(s.path)

	logger.Info("presets: watching", slog.String("path", s.Path()))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("presets: watcher stopped")
			return nil

		case <-fire:
			fire = nil
			if err := s.Load(); err != nil {
				logger.Warn("presets: reload failed, keeping previous set",
					slog.String("path", s.path),
					slog.String("error", err.Error()))
				continue
			}
			n := len(s.List())
			logger.Info("presets: reloaded", slog.Int("count", n))
			if onReload != nil {
				onReload(n)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("presets: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
