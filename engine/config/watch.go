package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watch reloads the settings file whenever it is written or replaced and passes each valid result
// to onChange. Files that fail to load are logged and skipped. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file so editors that save by rename keep
// triggering reloads.
//
// Parameters:
//   - ctx: cancels the watch
//   - path: the settings file
//   - logger: receives reload failures; nil uses slog.Default()
//   - onChange: called from the watch goroutine with each reloaded Settings
//
// Returns:
//   - error: a watcher setup error, or nil once ctx is done
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(Settings)) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "config")

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create settings watcher")
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s, err := Load(abs)
			if err != nil {
				logger.Warn("settings reload failed", "path", abs, "error", err)
				continue
			}
			logger.Info("settings reloaded", "path", abs)
			onChange(s)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", "error", err)
		}
	}
}
