package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for a burst of writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watch blocks until ctx is done, calling onChange whenever the archive file
// is created, written, replaced or removed by anyone, this process included.
// Bursts of events within one debounce interval produce a single call.
//
// The directory is watched rather than the file: Save replaces the file by
// rename, which would silently end a watch on the old inode.
func (a *Archive) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("file: creating archive directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file: creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(a.dir); err != nil {
		return fmt.Errorf("file: watching %s: %w", a.dir, err)
	}
	a.logger.Info("watching meal archive", slog.String("path", a.Path()))

	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	target := filepath.Clean(a.Path())
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			a.logger.Debug("meal archive changed", slog.String("op", event.Op.String()))
			pending = true

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("meal archive watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if pending {
				pending = false
				onChange()
			}
		}
	}
}
