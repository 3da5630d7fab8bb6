package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/metrics"
)

// ============================================================================
// SOURCE CACHE: Memoized loads keyed by source identity
// ============================================================================
// Identity is the absolute path plus the file's size and modification time.
// A changed signature reloads on the next Get; Invalidate and Watch evict
// explicitly. Filtered views and aggregates are never cached here.
// ============================================================================

// Cache memoizes stores per source file. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	opts    []Option
	watcher *fsnotify.Watcher
	watched map[string]bool // directories added to watcher
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type cacheEntry struct {
	sig   signature
	store *Store
}

type signature struct {
	size    int64
	modTime int64 // unix nanoseconds
}

// NewCache creates a cache that loads with opts.
func NewCache(opts ...Option) *Cache {
	cfg := applyOptions(opts)
	return &Cache{
		entries: make(map[string]*cacheEntry),
		opts:    opts,
		watched: make(map[string]bool),
		logger:  cfg.Logger.Named("cache"),
		metrics: cfg.Metrics,
	}
}

// Get returns the store for path, loading it when absent or when the file's
// signature changed since it was loaded. Failed loads are not cached.
func (c *Cache) Get(path string) (*Store, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, &DataLoadError{Source: path, Reason: "unresolvable path", Err: err}
	}
	info, err := os.Stat(key)
	if err != nil {
		c.metrics.ObserveCache(metrics.ResultMiss)
		return nil, &DataLoadError{Source: path, Reason: "unreadable source", Err: err}
	}
	sig := signature{size: info.Size(), modTime: info.ModTime().UnixNano()}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	switch {
	case ok && entry.sig == sig:
		c.metrics.ObserveCache(metrics.ResultHit)
		return entry.store, nil
	case ok:
		c.metrics.ObserveCache(metrics.ResultStale)
		c.logger.Info("source changed, reloading", zap.String("path", key))
	default:
		c.metrics.ObserveCache(metrics.ResultMiss)
	}

	s, err := Load(key, c.opts...)
	if err != nil {
		delete(c.entries, key)
		return nil, err
	}
	c.entries[key] = &cacheEntry{sig: sig, store: s}
	c.watchDirLocked(filepath.Dir(key))
	return s, nil
}

// Invalidate evicts path. It reports whether an entry was present.
func (c *Cache) Invalidate(path string) bool {
	key, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked(key)
}

// Cached reports whether path currently has a memoized store.
func (c *Cache) Cached(path string) bool {
	key, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func (c *Cache) evictLocked(key string) bool {
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.logger.Info("evicted", zap.String("path", key))
	return true
}

// ============================================================================
// WATCH: fsnotify eviction
// ============================================================================

// Watch starts evicting entries whose file is written, removed, renamed or
// recreated. Directories are watched (not files) so editors that replace the
// file atomically are still seen. Non-blocking; stops when ctx is done.
func (c *Cache) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.watcher != nil {
		c.mu.Unlock()
		watcher.Close()
		return nil // already watching
	}
	c.watcher = watcher
	for key := range c.entries {
		c.watchDirLocked(filepath.Dir(key))
	}
	c.mu.Unlock()

	go c.run(ctx, watcher)
	return nil
}

func (c *Cache) watchDirLocked(dir string) {
	if c.watcher == nil || c.watched[dir] {
		return
	}
	if err := c.watcher.Add(dir); err != nil {
		c.logger.Warn("watch failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	c.watched[dir] = true
}

func (c *Cache) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		c.mu.Lock()
		c.watcher = nil
		c.watched = make(map[string]bool)
		c.mu.Unlock()
		watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue // chmod
			}
			c.mu.Lock()
			c.evictLocked(filepath.Clean(event.Name))
			c.mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
