package dataset

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pipetrace/internal/feedback"
)

// InvalidateFunc receives the names of datasets whose sources changed. It is
// called from the watcher goroutine after the debounce window closes.
type InvalidateFunc func(datasets []string)

// Watcher maps filesystem events on registered source files back to dataset
// names. GIS exporters rewrite files via rename, so the parent directory is
// watched and events are filtered by base name.
type Watcher struct {
	fs           *fsnotify.Watcher
	debounce     time.Duration
	onInvalidate InvalidateFunc
	sink         feedback.Sink

	mu sync.Mutex
	// dir -> base name -> dataset names
	targets map[string]map[string]map[string]struct{}
	dirs    map[string]struct{}

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher wires an fsnotify watcher. A debounce of zero defaults to 500ms,
// wide enough to swallow a multi-file re-export burst.
func NewWatcher(debounce time.Duration, onInvalidate InvalidateFunc, sink feedback.Sink) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if sink == nil {
		sink = feedback.Discard{}
	}
	return &Watcher{
		fs:           fs,
		debounce:     debounce,
		onInvalidate: onInvalidate,
		sink:         sink,
		targets:      make(map[string]map[string]map[string]struct{}),
		dirs:         make(map[string]struct{}),
		done:         make(chan struct{}),
	}, nil
}

// Watch registers every source file of the manifest. The caller decides how
// hard a registration failure is; the service treats it as a warning.
func (w *Watcher) Watch(m *Manifest) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, path := range m.SourceIDs() {
		dir := filepath.Dir(path)
		base := filepath.Base(path)
		if _, ok := w.dirs[dir]; !ok {
			if err := w.fs.Add(dir); err != nil {
				return err
			}
			w.dirs[dir] = struct{}{}
		}
		byBase, ok := w.targets[dir]
		if !ok {
			byBase = make(map[string]map[string]struct{})
			w.targets[dir] = byBase
		}
		names, ok := byBase[base]
		if !ok {
			names = make(map[string]struct{})
			byBase[base] = names
		}
		names[m.Name] = struct{}{}
	}
	return nil
}

// Start runs the event loop until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Close stops the loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) > 0 {
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			feedback.Infof(w.sink, "source change detected, invalidating %d dataset(s)", len(names))
			if w.onInvalidate != nil {
				w.onInvalidate(names)
			}
			pending = make(map[string]struct{})
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove) {
				continue
			}
			for _, name := range w.datasetsFor(ev.Name) {
				pending[name] = struct{}{}
			}
			if len(pending) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			feedback.Warnf(w.sink, "source watcher: %v", err)
		}
	}
}

func (w *Watcher) datasetsFor(path string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	byBase, ok := w.targets[filepath.Dir(path)]
	if !ok {
		return nil
	}
	names, ok := byBase[filepath.Base(path)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	return out
}
