package persona

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/outpost-labs/swarmgate/internal/logging"
)

// Watcher reloads a Manager's persona whenever its backing file changes on
// disk, so voice edits take effect without restarting the swarm.
type Watcher struct {
	manager *Manager
	watcher *fsnotify.Watcher
	log     *logging.Logger
}

// NewWatcher creates a Watcher for the manager's persona file. The watch is
// registered on the containing directory: editors commonly replace files by
// rename, which a file-level watch would miss.
func NewWatcher(m *Manager, log *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(m.Path())); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{manager: m, watcher: fw, log: log}, nil
}

// Run processes filesystem events until ctx is cancelled, reloading the
// persona on writes to its file. Reload failures are logged and the
// previous persona stays active.
func (w *Watcher) Run(ctx context.Context) {
	target := filepath.Clean(w.manager.Path())

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := w.manager.Reload(); err != nil {
				w.log.Warn("persona reload failed, keeping previous definition", "error", err)
				continue
			}
			w.log.Info("persona reloaded", "name", w.manager.Persona().Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("persona watcher error", "error", err)
		}
	}
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
