package filecache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
	"github.com/gocifsd/smbnotifyd/internal/threadpool"
)

type recordingListener struct {
	mu      sync.Mutex
	closed  []*coretypes.FileState
	veto    map[string]bool // path -> StateExpired return value; default true
}

func newRecordingListener() *recordingListener {
	return &recordingListener{veto: make(map[string]bool)}
}

func (l *recordingListener) StateClosed(state *coretypes.FileState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = append(l.closed, state)
}

func (l *recordingListener) StateExpired(state *coretypes.FileState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if allow, ok := l.veto[state.Path]; ok {
		return allow
	}
	return true
}

func (l *recordingListener) closedPaths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.closed))
	for i, s := range l.closed {
		out[i] = s.Path
	}
	return out
}

func TestFindOrCreate_Atomic(t *testing.T) {
	c := New(Config{}, nil, nil)

	a := c.FindOrCreate(`\dir\file.txt`, coretypes.FileExists)
	b := c.FindOrCreate(`\dir\file.txt`, coretypes.DirectoryExists)

	if a != b {
		t.Fatal("expected FindOrCreate to return the same state on the second call")
	}
	if a.Status != coretypes.FileExists {
		t.Errorf("expected status to remain FileExists from first creation, got %v", a.Status)
	}
	if a.FileID == coretypes.UnknownFileID {
		t.Error("expected a non-zero stable fileId")
	}
}

func TestFind_MissingReturnsFalse(t *testing.T) {
	c := New(Config{}, nil, nil)
	if _, ok := c.Find(`\nope`); ok {
		t.Fatal("expected Find to report not-found for an absent path")
	}
}

func TestCaseInsensitiveNormalization(t *testing.T) {
	c := New(Config{CaseSensitive: false}, nil, nil)
	c.FindOrCreate(`\Dir\File.txt`, coretypes.FileExists)

	if _, ok := c.Find(`\dir\file.TXT`); !ok {
		t.Fatal("expected case-insensitive lookup to match")
	}
}

func TestCaseSensitiveNormalization(t *testing.T) {
	c := New(Config{CaseSensitive: true}, nil, nil)
	c.FindOrCreate(`\Dir\File.txt`, coretypes.FileExists)

	if _, ok := c.Find(`\dir\file.txt`); ok {
		t.Fatal("expected case-sensitive cache to not match differing case")
	}
	if _, ok := c.Find(`\Dir\File.txt`); !ok {
		t.Fatal("expected exact-case lookup to match")
	}
}

func TestRemove_NotifiesListener(t *testing.T) {
	listener := newRecordingListener()
	c := New(Config{}, nil, listener)

	c.FindOrCreate(`\a.txt`, coretypes.FileExists)
	state, ok := c.Remove(`\a.txt`)
	if !ok {
		t.Fatal("expected Remove to report the entry existed")
	}
	if state.Path != `\A.TXT` {
		t.Errorf("unexpected path on removed state: %q", state.Path)
	}

	if got := listener.closedPaths(); len(got) != 1 || got[0] != `\A.TXT` {
		t.Errorf("expected StateClosed to fire once for the removed path, got %v", got)
	}

	if _, ok := c.Remove(`\a.txt`); ok {
		t.Fatal("expected second Remove to report not-found")
	}
}

func TestRename_SourceWinsWhenTargetFree(t *testing.T) {
	c := New(Config{}, nil, nil)
	state := c.FindOrCreate(`\old.txt`, coretypes.FileExists)

	c.Rename(state, `\new.txt`, false)

	if _, ok := c.Find(`\old.txt`); ok {
		t.Error("expected old path to be gone after rename")
	}
	moved, ok := c.Find(`\new.txt`)
	if !ok {
		t.Fatal("expected new path to be present after rename")
	}
	if moved != state {
		t.Error("expected the same state object to be reachable under the new path")
	}
	if moved.Status != coretypes.FileExists {
		t.Errorf("expected FileExists status after file rename, got %v", moved.Status)
	}
}

func TestRename_WinsOnSourceSideOnlyWhenTargetOccupied(t *testing.T) {
	c := New(Config{}, nil, nil)
	src := c.FindOrCreate(`\old.txt`, coretypes.FileExists)
	target := c.FindOrCreate(`\new.txt`, coretypes.FileExists)

	c.Rename(src, `\new.txt`, false)

	if _, ok := c.Find(`\old.txt`); ok {
		t.Error("expected old path to always be removed by rename")
	}
	cur, ok := c.Find(`\new.txt`)
	if !ok {
		t.Fatal("expected target path to remain present")
	}
	if cur != target {
		t.Error("expected the pre-existing target entry to be left untouched, not overwritten by the source")
	}
}

func TestRename_DirectoryResetsDescendants(t *testing.T) {
	c := New(Config{}, nil, nil)
	dir := c.FindOrCreate(`\olddir`, coretypes.DirectoryExists)
	child := c.FindOrCreate(`\olddir\child.txt`, coretypes.FileExists)
	grandchild := c.FindOrCreate(`\olddir\sub\deep.txt`, coretypes.FileExists)
	unrelated := c.FindOrCreate(`\olddirsibling\file.txt`, coretypes.FileExists)

	c.Rename(dir, `\newdir`, true)

	if child.Status != coretypes.NotExist || child.FileID != coretypes.UnknownFileID {
		t.Error("expected direct descendant to be reset to NotExist/UnknownFileID")
	}
	if grandchild.Status != coretypes.NotExist || grandchild.FileID != coretypes.UnknownFileID {
		t.Error("expected nested descendant to be reset to NotExist/UnknownFileID")
	}
	if unrelated.Status == coretypes.NotExist {
		t.Error("expected a sibling whose name merely shares a prefix to be left untouched")
	}

	moved, ok := c.Find(`\newdir`)
	if !ok || moved != dir || moved.Status != coretypes.DirectoryExists {
		t.Fatal("expected the directory itself to move to the new path as DirectoryExists")
	}
}

func TestRemoveAll_NotifiesEveryEntry(t *testing.T) {
	listener := newRecordingListener()
	c := New(Config{}, nil, listener)
	c.FindOrCreate(`\a.txt`, coretypes.FileExists)
	c.FindOrCreate(`\b.txt`, coretypes.FileExists)

	c.RemoveAll()

	if got := listener.closedPaths(); len(got) != 2 {
		t.Fatalf("expected 2 StateClosed notifications, got %d: %v", len(got), got)
	}
	if _, ok := c.Find(`\a.txt`); ok {
		t.Error("expected cache to be empty after RemoveAll")
	}
}

func TestSweepExpired_RemovesOnlyExpiredUnopenedEntries(t *testing.T) {
	c := New(Config{}, nil, nil)

	expired := c.FindOrCreate(`\expired.txt`, coretypes.FileExists)
	expired.ExpiryTime = time.Now().Add(-time.Minute)

	fresh := c.FindOrCreate(`\fresh.txt`, coretypes.FileExists)
	fresh.ExpiryTime = time.Now().Add(time.Hour)

	open := c.FindOrCreate(`\open.txt`, coretypes.FileExists)
	open.ExpiryTime = time.Now().Add(-time.Minute)
	open.OpenCount = 1

	permanent := c.FindOrCreate(`\permanent.txt`, coretypes.FileExists)
	permanent.ExpiryTime = time.Time{}

	n := c.SweepExpired()
	if n != 1 {
		t.Fatalf("expected exactly 1 entry swept, got %d", n)
	}

	if _, ok := c.Find(`\expired.txt`); ok {
		t.Error("expected the expired, unopened entry to be removed")
	}
	for _, path := range []string{`\fresh.txt`, `\open.txt`, `\permanent.txt`} {
		if _, ok := c.Find(path); !ok {
			t.Errorf("expected %s to survive the sweep", path)
		}
	}
}

func TestSweepExpired_ListenerCanVeto(t *testing.T) {
	listener := newRecordingListener()
	c := New(Config{}, nil, listener)

	state := c.FindOrCreate(`\vetoed.txt`, coretypes.FileExists)
	state.ExpiryTime = time.Now().Add(-time.Minute)
	listener.veto[state.Path] = false

	n := c.SweepExpired()
	if n != 0 {
		t.Fatalf("expected the veto to prevent removal, swept %d", n)
	}
	if _, ok := c.Find(`\vetoed.txt`); !ok {
		t.Error("expected vetoed entry to remain cached")
	}
	if len(listener.closedPaths()) != 0 {
		t.Error("expected no StateClosed notification for a vetoed entry")
	}
}

func TestSweepExpired_NotifiesSweptEntry(t *testing.T) {
	listener := newRecordingListener()
	c := New(Config{}, nil, listener)

	state := c.FindOrCreate(`\goner.txt`, coretypes.FileExists)
	state.ExpiryTime = time.Now().Add(-time.Minute)

	n := c.SweepExpired()
	if n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	if got := listener.closedPaths(); len(got) != 1 || got[0] != state.Path {
		t.Errorf("expected StateClosed for the swept entry, got %v", got)
	}
}

func TestStableFileID_Deterministic(t *testing.T) {
	a := stableFileID(`\SAME\PATH.TXT`)
	b := stableFileID(`\SAME\PATH.TXT`)
	c := stableFileID(`\OTHER\PATH.TXT`)

	if a != b {
		t.Error("expected the same path to always produce the same fileId")
	}
	if a == c {
		t.Error("expected different paths to produce different fileIds (absent a hash collision)")
	}
	if a == coretypes.UnknownFileID {
		t.Error("expected stableFileID to never return the Unknown sentinel")
	}
}

func TestPeriodicSweep_WiredToThreadPool(t *testing.T) {
	pool := threadpool.New(4)
	pool.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	}()

	listener := newRecordingListener()
	c := New(Config{ExpireInterval: 40 * time.Millisecond}, pool, listener)
	defer c.Close()

	state := c.FindOrCreate(`\stale.txt`, coretypes.FileExists)
	state.ExpiryTime = time.Now().Add(-time.Minute)

	deadline := time.After(time.Second)
	for {
		if _, ok := c.Find(`\stale.txt`); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected the periodic sweep to eventually remove the stale entry")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestClose_CancelsPeriodicSweep(t *testing.T) {
	pool := threadpool.New(4)
	pool.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	}()

	c := New(Config{ExpireInterval: 20 * time.Millisecond}, pool, nil)
	c.Close()

	if pool.RemoveTimed(c.sweep) {
		t.Fatal("expected Close to have already removed the sweep request")
	}
}
