// Package fsdriver implements the external "filesystem driver" collaborator
// using fsnotify: it watches a real directory tree, translates OS events
// into coretypes.ChangeEvent, keeps internal/filecache in sync, and feeds
// internal/notify. fsnotify reports a rename as a Remove on the old name
// followed by a Create on the new one (on Linux/inotify); this driver does
// not attempt to correlate the pair back into a single Renamed event.
package fsdriver

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
	"github.com/gocifsd/smbnotifyd/internal/filecache"
	"github.com/gocifsd/smbnotifyd/internal/logger"
	"github.com/gocifsd/smbnotifyd/internal/notify"
)

// Driver watches root and drives cache and dispatcher from what it sees.
type Driver struct {
	watcher    *fsnotify.Watcher
	root       string
	cache      *filecache.Cache
	dispatcher *notify.Dispatcher

	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Driver rooted at root, recursively watching every existing
// subdirectory.
func New(root string, cache *filecache.Cache, dispatcher *notify.Dispatcher) (*Driver, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	d := &Driver{
		watcher:    w,
		root:       filepath.Clean(root),
		cache:      cache,
		dispatcher: dispatcher,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	if err := d.watchTree(d.root); err != nil {
		_ = w.Close()
		return nil, err
	}
	return d, nil
}

func (d *Driver) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return d.watcher.Add(path)
		}
		return nil
	})
}

// Run consumes fsnotify events until Close is called. Intended to run on
// its own goroutine.
func (d *Driver) Run() {
	defer close(d.stopped)
	for {
		select {
		case <-d.stop:
			return
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handle(ev)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("fsdriver: watcher error", "error", err)
		}
	}
}

// Close stops Run and releases the underlying watcher.
func (d *Driver) Close() error {
	close(d.stop)
	<-d.stopped
	return d.watcher.Close()
}

func (d *Driver) handle(ev fsnotify.Event) {
	smbPath := d.toSMBPath(ev.Name)
	isDir := d.statIsDir(ev.Name)

	switch {
	case ev.Op&fsnotify.Create != 0:
		if isDir {
			if err := d.watcher.Add(ev.Name); err != nil {
				logger.Warn("fsdriver: failed to watch new directory", "path", ev.Name, "error", err)
			}
		}
		status := coretypes.FileExists
		if isDir {
			status = coretypes.DirectoryExists
		}
		d.cache.FindOrCreate(smbPath, status)
		d.dispatch(coretypes.Created, smbPath, "", isDir)

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		d.cache.Remove(smbPath)
		d.dispatch(coretypes.Deleted, smbPath, "", isDir)

	case ev.Op&fsnotify.Write != 0:
		d.dispatch(coretypes.Modified, smbPath, "", isDir)
		d.dispatch(coretypes.LastWrite, smbPath, "", isDir)

	case ev.Op&fsnotify.Chmod != 0:
		d.dispatch(coretypes.Attributes, smbPath, "", isDir)
	}
}

func (d *Driver) dispatch(change coretypes.FSChange, path, oldPath string, isDir bool) {
	if !d.dispatcher.WantsEvent(change, isDir) {
		return
	}
	d.dispatcher.HandleEvent(coretypes.ChangeEvent{
		Change:      change,
		Path:        path,
		OldPath:     oldPath,
		IsDirectory: isDir,
	})
}

func (d *Driver) statIsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// toSMBPath converts an absolute OS path under root to the backslash-rooted
// wire convention coretypes.NormalizedPath expects.
func (d *Driver) toSMBPath(osPath string) string {
	rel, err := filepath.Rel(d.root, osPath)
	if err != nil {
		rel = osPath
	}
	rel = filepath.ToSlash(rel)
	rel = strings.ReplaceAll(rel, "/", `\`)
	return coretypes.NormalizedPath(rel)
}
