package tuning

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a tuning file whenever it changes on disk and publishes the
// validated result. Invalid edits are reported on Errors and otherwise ignored,
// so the running kitchen keeps its last good tuning.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	Updates chan Tuning
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files via rename, which drops a file watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:    filepath.Clean(path),
		watcher: fw,
		Updates: make(chan Tuning, 1),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		w.wg.Wait()
		close(w.Updates)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	var last time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			now := time.Now()
			if now.Sub(last) < 100*time.Millisecond {
				continue
			}
			last = now
			t, err := Load(w.path)
			if err != nil {
				w.publishErr(err)
				continue
			}
			// Keep only the newest update if the consumer is slow.
			select {
			case <-w.Updates:
			default:
			}
			select {
			case w.Updates <- t:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.publishErr(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) publishErr(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}
