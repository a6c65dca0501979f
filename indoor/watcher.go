package indoor

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces bursts of writes into one reload.
const DefaultWatchDebounce = 250 * time.Millisecond

// DatasetWatcher reloads a dataset file whenever it changes on disk and
// hands each new Dataset to OnLoad. Failed reloads go to OnError and the
// previous dataset stays active.
type DatasetWatcher struct {
	Path     string
	Loader   *Loader
	Debounce time.Duration
	OnLoad   func(ds *Dataset)
	OnError  func(err error)
}

// NewDatasetWatcher creates a watcher for path.
func NewDatasetWatcher(path string, loader *Loader, onLoad func(*Dataset)) *DatasetWatcher {
	return &DatasetWatcher{
		Path:     path,
		Loader:   loader,
		Debounce: DefaultWatchDebounce,
		OnLoad:   onLoad,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// atomic replace-by-rename is seen too.
func (w *DatasetWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(w.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	log.Printf("Watching %s for dataset changes", target)

	var (
		timer  *time.Timer
		fire   <-chan time.Time
		reload = w.Debounce
	)
	if reload <= 0 {
		reload = DefaultWatchDebounce
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !relevant(ev.Op) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reload)
			} else {
				timer.Reset(reload)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.fail(fmt.Errorf("watcher: %w", err))

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}

func (w *DatasetWatcher) reload() {
	ds, err := w.Loader.LoadFile(w.Path)
	if err != nil {
		DatasetLoads.WithLabelValues("watch", "error").Inc()
		w.fail(err)
		return
	}
	DatasetLoads.WithLabelValues("watch", "ok").Inc()
	log.Printf("Reloaded dataset %s (%d features, version %s)", w.Path, len(ds.Entries), ds.Version)
	if w.OnLoad != nil {
		w.OnLoad(ds)
	}
}

func (w *DatasetWatcher) fail(err error) {
	if w.OnError != nil {
		w.OnError(err)
		return
	}
	log.Printf("Dataset reload failed: %v", err)
}
