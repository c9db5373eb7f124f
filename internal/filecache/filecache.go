// Package filecache implements the path-keyed file-state cache: single
// state per path, rename propagation to descendants, open-reference
// counting, and periodic expiry sweeps wired to the thread pool.
package filecache

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
	"github.com/gocifsd/smbnotifyd/internal/logger"
	"github.com/gocifsd/smbnotifyd/internal/threadpool"
	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

// Config configures a Cache.
type Config struct {
	InitialSize    int
	CaseSensitive  bool
	ExpireInterval time.Duration
}

// Cache maps normalized paths to FileState. A single RWMutex protects the
// map; listener callbacks always run outside the lock to avoid reentrancy
// deadlock.
type Cache struct {
	mu     sync.RWMutex
	states map[string]*coretypes.FileState

	caseSensitive  bool
	expireInterval time.Duration

	listener coretypes.StateListener

	pool  *threadpool.Pool
	sweep *threadpool.TimedThreadRequest

	metrics metrics.FileCacheMetrics
}

// SetMetrics attaches a metrics sink. Passing nil (the default) disables
// observation entirely.
func (c *Cache) SetMetrics(m metrics.FileCacheMetrics) {
	c.metrics = m
}

func (c *Cache) observeSizeLocked() {
	metrics.RecordCacheSize(c.metrics, len(c.states))
}

// New creates a Cache per cfg. If pool is non-nil, a periodic sweep is
// registered with it at half of cfg.ExpireInterval, the concrete wiring of
// the cache's dependency on the thread pool for expiry.
func New(cfg Config, pool *threadpool.Pool, listener coretypes.StateListener) *Cache {
	if cfg.InitialSize <= 0 {
		cfg.InitialSize = 500
	}
	if cfg.ExpireInterval <= 0 {
		cfg.ExpireInterval = 60 * time.Second
	}

	c := &Cache{
		states:         make(map[string]*coretypes.FileState, cfg.InitialSize),
		caseSensitive:  cfg.CaseSensitive,
		expireInterval: cfg.ExpireInterval,
		listener:       listener,
	}

	if pool != nil {
		c.pool = pool
		c.sweep = &threadpool.TimedThreadRequest{
			Name:           "filecache-sweep",
			RunAt:          time.Now().Add(cfg.ExpireInterval / 2),
			RepeatInterval: cfg.ExpireInterval / 2,
			Run:            func() { c.SweepExpired() },
		}
		pool.QueueTimed(c.sweep)
	}

	return c
}

// Close cancels the periodic sweep, if one is registered.
func (c *Cache) Close() {
	if c.sweep != nil && c.pool != nil {
		c.pool.RemoveTimed(c.sweep)
	}
}

// normalize uppercases (when case-insensitive) and trims trailing
// separators, except when the path is exactly the root separator.
func (c *Cache) normalize(path string) string {
	if !c.caseSensitive {
		path = strings.ToUpper(path)
	}
	if path == `\` {
		return path
	}
	return strings.TrimRight(path, `\`)
}

// Find returns the state for path without mutating the cache.
func (c *Cache) Find(path string) (*coretypes.FileState, bool) {
	key := c.normalize(path)
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[key]
	return state, ok
}

// FindOrCreate atomically returns the existing state for path or creates one
// with initialStatus and expiryTime = now + expireInterval.
func (c *Cache) FindOrCreate(path string, initialStatus coretypes.FileStatus) *coretypes.FileState {
	key := c.normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.states[key]; ok {
		return state
	}

	state := &coretypes.FileState{
		Path:       key,
		Status:     initialStatus,
		FileID:     stableFileID(key),
		ExpiryTime: time.Now().Add(c.expireInterval),
	}
	c.states[key] = state
	c.observeSizeLocked()
	metrics.RecordEntryOpened(c.metrics)
	return state
}

// Remove deletes the state for path, if present, and notifies the listener
// with StateClosed outside the lock.
func (c *Cache) Remove(path string) (*coretypes.FileState, bool) {
	key := c.normalize(path)

	c.mu.Lock()
	state, ok := c.states[key]
	if ok {
		delete(c.states, key)
		c.observeSizeLocked()
	}
	c.mu.Unlock()

	if ok {
		metrics.RecordEntryClosed(c.metrics)
		c.notifyClosed(state)
	}
	return state, ok
}

// Rename moves state to newPath. If a directory is renamed, every cached
// path that is a strict descendant of the old path is reset to NotExist
// with an Unknown fileId. Per spec.md §7's "rename wins on the source side
// only": if newPath is already present in the cache, the old key is simply
// removed and the existing target entry is left untouched.
func (c *Cache) Rename(state *coretypes.FileState, newPath string, isDir bool) {
	oldKey := state.Path
	newKey := c.normalize(newPath)

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.states, oldKey)

	if _, exists := c.states[newKey]; !exists {
		state.Path = newKey
		if isDir {
			state.Status = coretypes.DirectoryExists
		} else {
			state.Status = coretypes.FileExists
		}
		c.states[newKey] = state
	}

	if isDir {
		prefix := oldKey + `\`
		for key, descendant := range c.states {
			if key == newKey {
				continue
			}
			if strings.HasPrefix(key, prefix) {
				descendant.Status = coretypes.NotExist
				descendant.FileID = coretypes.UnknownFileID
			}
		}
	}
}

// RemoveAll flushes every entry, invoking StateClosed for each.
func (c *Cache) RemoveAll() {
	c.mu.Lock()
	states := make([]*coretypes.FileState, 0, len(c.states))
	for _, state := range c.states {
		states = append(states, state)
	}
	c.states = make(map[string]*coretypes.FileState)
	c.observeSizeLocked()
	c.mu.Unlock()

	for _, state := range states {
		metrics.RecordEntryClosed(c.metrics)
		c.notifyClosed(state)
	}
}

// SweepExpired removes entries that are not permanent, have expired, and
// have no open references — unless the listener vetoes a specific entry by
// returning false from StateExpired. A listener that panics in StateExpired
// is logged and the entry is kept. Returns the number of states removed.
func (c *Cache) SweepExpired() int {
	now := time.Now()

	c.mu.Lock()
	var candidates []*coretypes.FileState
	for key, state := range c.states {
		if state.OpenCount > 0 || state.Permanent() || !state.Expired(now) {
			continue
		}
		candidates = append(candidates, state)
		_ = key
	}
	c.mu.Unlock()

	if len(candidates) == 0 {
		return 0
	}

	allowExpiry := func(state *coretypes.FileState) (allow bool) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("filecache: listener panicked in StateExpired", "panic", r)
				allow = false
			}
		}()
		return c.listener == nil || c.listener.StateExpired(state)
	}

	var removed []*coretypes.FileState
	for _, state := range candidates {
		if !allowExpiry(state) {
			continue
		}
		removed = append(removed, state)
	}

	if len(removed) == 0 {
		return 0
	}

	c.mu.Lock()
	for _, state := range removed {
		if cur, ok := c.states[state.Path]; ok && cur == state {
			delete(c.states, state.Path)
		}
	}
	c.observeSizeLocked()
	c.mu.Unlock()

	metrics.RecordSweepRemoved(c.metrics, len(removed))
	for _, state := range removed {
		c.notifyClosed(state)
	}

	return len(removed)
}

func (c *Cache) notifyClosed(state *coretypes.FileState) {
	if c.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("filecache: listener panicked in StateClosed", "panic", r)
		}
	}()
	c.listener.StateClosed(state)
}

// stableFileID derives a stable FNV-1a hash identifier from the normalized
// path, so the same path always maps to the same fileId across lookups.
func stableFileID(normalizedPath string) coretypes.FileID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalizedPath))
	id := coretypes.FileID(h.Sum64())
	if id == coretypes.UnknownFileID {
		// Vanishingly unlikely; avoid colliding with the sentinel.
		id = 1
	}
	return id
}
