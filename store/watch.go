package store

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-kit/log/level"
)

// Watch reloads the snapshot whenever the numbers or template file changes
// on disk, so edits made outside the management API (or by another replica)
// become visible without a restart. It watches the directory rather than the
// files themselves because atomic saves replace the inode.
//
// A failed reload keeps the previous snapshot. Watch blocks until ctx is
// cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.numbersPath)); err != nil {
		return err
	}

	level.Info(s.logger).Log("msg", "watching configuration files", "dir", filepath.Dir(s.numbersPath))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			name := filepath.Base(event.Name)
			if name != numbersFile && name != templateFile {
				continue
			}

			if err := s.Reload(); err != nil {
				level.Error(s.logger).Log("msg", "reload failed, keeping previous snapshot", "file", name, "error", err)
				continue
			}
			level.Debug(s.logger).Log("msg", "configuration reloaded", "file", name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			level.Error(s.logger).Log("msg", "watcher error", "error", err)
		}
	}
}
