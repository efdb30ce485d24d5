package locale

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a locale file into a Store whenever it changes on disk.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	store     *Store
	path      string
	logger    *zap.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// Watch starts watching path. The parent directory is watched rather than
// the file itself so editors that replace the file on save are handled.
func Watch(store *Store, path string, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		store:     store,
		path:      filepath.Clean(path),
		logger:    logger,
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("locale watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	pack, err := LoadFile(w.path)
	if err != nil {
		// keep serving the previous pack
		w.logger.Warn("failed to reload locale", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.store.Set(pack)
	w.logger.Info("locale reloaded", zap.String("code", pack.Code))
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
	})
	return err
}
