package plugins

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/extpoint/pkg/observability"
)

// DefaultDebounce is how long the watcher waits for module changes to settle
const DefaultDebounce = 500 * time.Millisecond

// WatcherOptions configures a CacheWatcher
type WatcherOptions struct {
	Pattern  string
	Debounce time.Duration
	Logger   logrus.FieldLogger
	Metrics  *observability.Metrics

	// OnInvalidate runs after the cache file has been removed
	OnInvalidate func()
}

// CacheWatcher removes the metadata cache whenever a module file under
// the root is created, written, removed or renamed.
type CacheWatcher struct {
	root      string
	cacheFile string
	pattern   string
	debounce  time.Duration
	log       logrus.FieldLogger
	cache     *MetadataCache
	onChange  func()

	readyOnce sync.Once
	ready     chan struct{}
}

// NewCacheWatcher creates a watcher for root that invalidates cacheFile
func NewCacheWatcher(root, cacheFile string, opts WatcherOptions) *CacheWatcher {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &CacheWatcher{
		root:      root,
		cacheFile: cacheFile,
		pattern:   opts.Pattern,
		debounce:  opts.Debounce,
		log:       opts.Logger,
		cache:     NewMetadataCache(opts.Logger, opts.Metrics),
		onChange:  opts.OnInvalidate,
		ready:     make(chan struct{}),
	}
}

// Watcher returns a CacheWatcher for the registry's module root that
// also resets the registry after each invalidation
func (r *Registry) Watcher(debounce time.Duration) *CacheWatcher {
	return NewCacheWatcher(r.opts.ModuleRoot, r.opts.CacheFile, WatcherOptions{
		Pattern:      r.opts.Pattern,
		Debounce:     debounce,
		Logger:       r.log,
		Metrics:      r.metrics,
		OnInvalidate: r.Reset,
	})
}

// Ready is closed once every directory under the root is watched
func (w *CacheWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done
func (w *CacheWatcher) Run(ctx context.Context) error {
	if err := checkRoot(w.root); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, w.root); err != nil {
		return fmt.Errorf("failed to watch module root: %w", err)
	}
	w.readyOnce.Do(func() { close(w.ready) })

	w.log.WithField("path", w.root).Info("Watching module root for changes")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						w.log.WithField("path", event.Name).Warnf("Failed to watch new directory: %v", err)
					}
					continue
				}
			}

			if !w.relevant(event) {
				continue
			}

			w.log.WithFields(logrus.Fields{
				"path": event.Name,
				"op":   event.Op.String(),
			}).Debug("Module file changed")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.invalidate()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("Watcher error: %v", err)
		}
	}
}

func (w *CacheWatcher) relevant(event fsnotify.Event) bool {
	const ops = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	return event.Op&ops != 0 && strings.HasSuffix(event.Name, w.pattern)
}

func (w *CacheWatcher) invalidate() {
	if w.cacheFile != "" {
		if err := w.cache.Invalidate(w.cacheFile); err != nil {
			w.log.WithField("path", w.cacheFile).Errorf("Failed to invalidate metadata cache: %v", err)
			return
		}
	}

	w.log.WithField("path", w.root).Info("Module files changed, metadata cache invalidated")
	if w.onChange != nil {
		w.onChange()
	}
}

// watchTree adds root and every directory below it to the watcher
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
