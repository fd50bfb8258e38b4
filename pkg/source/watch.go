package source

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/loreboard/loreboard/pkg/entity"
)

// DefaultDebounce is how long a file must stay quiet before it is reloaded.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads an entity file whenever it changes on disk.
type Watcher struct {
	path     string
	onChange func([]entity.Entity)
	debounce time.Duration
	logger   *log.Logger
}

// NewWatcher creates a watcher for the entity file at path. onChange
// receives the freshly loaded entity set; files that fail to load are
// logged and skipped.
func NewWatcher(path string, onChange func([]entity.Entity)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   log.New(io.Discard),
	}
}

// WithDebounce sets the debounce duration.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithLogger sets the logger.
func (w *Watcher) WithLogger(l *log.Logger) *Watcher {
	if l != nil {
		w.logger = l
	}
	return w
}

// Watch blocks until ctx is cancelled, reloading the file after changes.
//
// The containing directory is watched rather than the file itself, so
// editors that replace the file on save are still followed.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	w.logger.Info("watching entity file", "path", w.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() == nil {
					w.reload()
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			stop()
			return ctx.Err()
		}
	}
}

func (w *Watcher) reload() {
	entities, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("reload failed", "path", w.path, "error", err)
		return
	}
	w.logger.Debug("entity file changed", "path", w.path, "entities", len(entities))
	w.onChange(entities)
}
