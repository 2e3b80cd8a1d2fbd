package policy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig controls the policy file watcher.
type WatcherConfig struct {
	// Path is the policy file or directory to watch
	Path string

	// DebounceInterval is the quiet period before a reload triggers
	// after file changes (default: 250ms)
	DebounceInterval time.Duration

	// Extensions lists the file extensions that trigger reloads
	Extensions []string
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig(path string) *WatcherConfig {
	return &WatcherConfig{
		Path:             path,
		DebounceInterval: 250 * time.Millisecond,
		Extensions:       []string{".yaml", ".yml"},
	}
}

// Watcher hot-reloads policies when their files change. Events are
// debounced so editors that write in bursts trigger one reload, and a
// reload that fails validation leaves the store on its previous set.
type Watcher struct {
	config   *WatcherConfig
	loader   *Loader
	store    *Store
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	debounce *debouncer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates a watcher that reloads path into store on change.
func NewWatcher(config *WatcherConfig, loader *Loader, store *Store, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		return nil, fmt.Errorf("watcher config cannot be nil")
	}
	if config.Path == "" {
		return nil, fmt.Errorf("watcher path cannot be empty")
	}
	if loader == nil {
		loader = NewLoader(nil)
	}
	if store == nil {
		return nil, fmt.Errorf("watcher store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	interval := config.DebounceInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	return &Watcher{
		config:   config,
		loader:   loader,
		store:    store,
		logger:   logger,
		fsw:      fsw,
		debounce: newDebouncer(interval),
	}, nil
}

// Start begins watching in the background. It returns once the watch paths
// are registered; reloads happen on the watcher's own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already started")
	}

	if err := w.addPath(w.config.Path); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.loop(watchCtx)

	w.logger.Info("policy watcher started",
		"path", w.config.Path,
		"debounce_ms", w.debounce.interval.Milliseconds(),
	)

	return nil
}

// Stop halts the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.debounce.stop()

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}

	return nil
}

// loop processes file system events until the context is cancelled.
func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("policy watcher stopped")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.shouldProcess(event) {
				continue
			}

			w.logger.Debug("policy file event",
				"path", event.Name,
				"op", event.Op.String(),
			)

			w.debounce.trigger(func() {
				w.reload(ctx)
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("policy watcher error", "error", err)
		}
	}
}

// reload loads the watched path and swaps the store contents. On failure
// the store keeps its previous set.
func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()

	policies, err := w.loader.Load(w.config.Path)
	if err != nil {
		w.logger.Error("policy reload failed, keeping previous set",
			"path", w.config.Path,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	if err := w.store.Replace(policies); err != nil {
		w.logger.Error("policy store replace failed, keeping previous set",
			"path", w.config.Path,
			"error", err,
		)
		return
	}

	w.logger.Info("policies reloaded",
		"path", w.config.Path,
		"count", len(policies),
		"version", w.store.Version(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// addPath registers a file or directory tree with the fsnotify watcher.
func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return w.fsw.Add(path)
	}

	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(p), ".") && p != path {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if err := w.fsw.Add(p); err != nil {
				return fmt.Errorf("failed to watch directory %q: %w", p, err)
			}
		}
		return nil
	})
}

// shouldProcess filters events down to policy document changes.
func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, allowed := range w.config.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// debouncer coalesces rapid event bursts into a single callback after a
// quiet period.
type debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

// trigger arms (or re-arms) the quiet-period timer with the callback.
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		stopped := d.stopped
		d.mu.Unlock()

		if !stopped && cb != nil {
			cb()
		}
	})
}

// stop cancels any pending callback.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
