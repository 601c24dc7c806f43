package persona

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the registry whenever the personas file changes, so
// prompt edits take effect without a restart.
type Watcher struct {
	watcher  *fsnotify.Watcher
	registry *Registry
	path     string
	logger   *slog.Logger
	done     chan struct{}
}

// Watch starts watching path for writes. Callers must Close the watcher
// on shutdown.
func Watch(path string, registry *Registry, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create personas watcher: %w", err)
	}

	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch personas file %s: %w", path, err)
	}

	w := &Watcher{
		watcher:  fw,
		registry: registry,
		path:     path,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.registry.LoadFile(w.path); err != nil {
				// Keep serving the previous personas on a bad edit.
				w.logger.Error("persona reload failed", "path", w.path, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("personas watcher error", "error", err)
		}
	}
}

// Close stops the watcher and waits for the reload loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
