package vault

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"valet/internal/logging"
)

// Watcher reports external edits to plan documents so cached views can be
// invalidated. Events are delivered on a background goroutine until Close.
type Watcher struct {
	fs   *fsnotify.Watcher
	log  *logging.Logger
	done chan struct{}
}

// Watch starts watching the vault directory. onChange receives the base
// name of each written or created file.
func (v *Vault) Watch(onChange func(name string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(v.root); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{fs: fw, log: logging.Get(logging.CategoryVault), done: make(chan struct{})}
	go w.run(onChange)
	return w, nil
}

func (w *Watcher) run(onChange func(string)) {
	defer close(w.done)
	for {
		select {
		case ev, okRecv := <-w.fs.Events:
			if !okRecv {
				return
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				name := filepath.Base(ev.Name)
				w.log.Debug("document changed on disk: %s", name)
				onChange(name)
			}
		case err, okRecv := <-w.fs.Errors:
			if !okRecv {
				return
			}
			w.log.Warn("watcher error: %v", err)
		}
	}
}

// Close stops the watcher and waits for the delivery goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}
