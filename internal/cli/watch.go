package cli

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// inputWatcher reports debounced changes to a fixed set of files. It watches
// the parent directories so files replaced by rename are still seen.
type inputWatcher struct {
	Changes <-chan string // Absolute path of the changed file.

	changes chan string
	files   map[string]bool
	dirs    []string
	done    chan struct{}
	watcher *fsnotify.Watcher
}

func newInputWatcher(files []string) (*inputWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(files))
	dirSet := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		set[abs] = true
		dirSet[filepath.Dir(abs)] = true
	}
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	ch := make(chan string, 16)
	return &inputWatcher{
		Changes: ch,
		changes: ch,
		files:   set,
		dirs:    dirs,
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Files returns the watched files in sorted order.
func (w *inputWatcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Start begins watching.
func (w *inputWatcher) Start() error {
	for _, d := range w.dirs {
		if err := w.watcher.Add(d); err != nil {
			w.watcher.Close()
			return err
		}
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *inputWatcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *inputWatcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(watchDebounce / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending[filepath.Clean(event.Name)] = time.Now()
			}

		case now := <-ticker.C:
			for file, t := range pending {
				if now.Sub(t) >= watchDebounce {
					w.emit(file)
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

// emit drops the change when the buffer is full; a re-run is already queued.
func (w *inputWatcher) emit(file string) {
	select {
	case w.changes <- file:
	default:
	}
}
