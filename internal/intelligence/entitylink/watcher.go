package entitylink

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
)

// reloadDebounce coalesces the burst of write events editors and atomic
// renames produce for a single save.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the linker whenever the ontology file changes, until ctx is
// cancelled.  The parent directory is watched rather than the file itself so
// atomic rename-into-place saves are seen.  Reload failures are logged and
// the previous snapshot stays active.
func (l *Linker) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					if err := l.Reload(path); err != nil {
						l.logger.Warn("ontology file change could not be applied",
							logging.String("path", path), logging.Err(err))
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("ontology watcher error", logging.Err(err))
			}
		}
	}()
	return nil
}
