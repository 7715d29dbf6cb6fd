package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 250 * time.Millisecond

// ProfileWatcher reloads a YAML profile file whenever it changes on disk.
type ProfileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	log     *slog.Logger
}

// NewProfileWatcher starts watching the directory that holds path. Watching
// the directory keeps working across editors that replace the file.
func NewProfileWatcher(path string, log *slog.Logger) (*ProfileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &ProfileWatcher{path: abs, watcher: w, log: log}, nil
}

// Run delivers each successfully reloaded profile to onChange until ctx is
// done. A file that fails to load is logged and the previous profile stays.
func (pw *ProfileWatcher) Run(ctx context.Context, onChange func(Profile)) {
	defer pw.watcher.Close()

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				// Editors often emit several events per save.
				timer.Reset(reloadDelay)
			}
		case <-timer.C:
			p, err := LoadProfile(pw.path)
			if err != nil {
				pw.log.Warn("profile reload failed, keeping previous", "path", pw.path, "error", err)
				continue
			}
			pw.log.Info("profile reloaded", "path", pw.path, "profile", p.Name)
			onChange(p)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.log.Warn("profile watcher error", "path", pw.path, "error", err)
		}
	}
}
