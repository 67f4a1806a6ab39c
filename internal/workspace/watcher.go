package workspace

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/wsmcp/internal/debug"
)

// Watcher reports changes of the active workspace made by another process.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
	last    string
}

// NewWatcher watches the store's directory. The current active name is the
// baseline; only later changes are reported.
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(store.Path())); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{store: store, watcher: fw}
	if f, err := store.Load(); err == nil {
		w.last = f.Active
	}
	return w, nil
}

// Start delivers each new active workspace name to onSwitch until ctx is
// done or Close is called.
func (w *Watcher) Start(ctx context.Context, onSwitch func(name string)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		target := filepath.Clean(w.store.Path())
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				f, err := w.store.Load()
				if err != nil {
					debug.LogWorkspace("reload after %s failed: %v", ev.Op, err)
					continue
				}
				if f.Active != "" && f.Active != w.last {
					w.last = f.Active
					onSwitch(f.Active)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				debug.LogWorkspace("watch error: %v", err)
			}
		}
	}()
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
