package coretypes

import (
	"strings"
	"time"
)

// FSChange is the category of an incoming filesystem event, as produced by
// the external filesystem driver.
type FSChange int

const (
	Created FSChange = iota
	Deleted
	Modified
	Renamed
	Attributes
	LastWrite
	Security
)

func (c FSChange) String() string {
	switch c {
	case Created:
		return "Created"
	case Deleted:
		return "Deleted"
	case Modified:
		return "Modified"
	case Renamed:
		return "Renamed"
	case Attributes:
		return "Attributes"
	case LastWrite:
		return "LastWrite"
	case Security:
		return "Security"
	default:
		return "Unknown"
	}
}

// NotifyChange is a bitmask of the categories a NotifyRequest's filter can
// select, matching the client-facing CHANGE_NOTIFY completion filter set.
type NotifyChange uint16

const (
	NotifyFileName NotifyChange = 1 << iota
	NotifyDirectoryName
	NotifyAttributes
	NotifySize
	NotifyLastWrite
	NotifyLastAccess
	NotifyCreation
	NotifySecurity
)

// Has reports whether the mask contains every bit in other.
func (m NotifyChange) Has(other NotifyChange) bool {
	return m&other == other
}

// Intersects reports whether m and other share at least one bit.
func (m NotifyChange) Intersects(other NotifyChange) bool {
	return m&other != 0
}

// changeToNotifyMask maps an incoming FSChange to the set of NotifyChange
// categories it can satisfy, per the event-matching algorithm.
func changeToNotifyMask(change FSChange) NotifyChange {
	switch change {
	case Created:
		return NotifyCreation | NotifyDirectoryName | NotifyFileName
	case Deleted, Modified, Renamed:
		return NotifyDirectoryName | NotifyFileName
	case Attributes:
		return NotifyAttributes
	case LastWrite:
		return NotifyLastWrite
	case Security:
		return NotifySecurity
	default:
		return 0
	}
}

// ChangeEvent is an immutable record produced by a filesystem driver.
type ChangeEvent struct {
	Change      FSChange
	Path        string
	OldPath     string // only meaningful when Change == Renamed
	IsDirectory bool
}

// NotifyMask returns the NotifyChange categories this event can satisfy.
func (e ChangeEvent) NotifyMask() NotifyChange {
	return changeToNotifyMask(e.Change)
}

// NormalizedPath uppercases and prepends a backslash when the path does not
// already start with one, per the wire convention: watchPath and event paths
// use backslash separators. The empty path is returned unchanged.
func NormalizedPath(path string) string {
	if path == "" {
		return path
	}
	p := strings.ToUpper(path)
	if !strings.HasPrefix(p, `\`) {
		p = `\` + p
	}
	return p
}

// FileID is a stable hash identifier for a cached path. The zero value is
// the Unknown sentinel.
type FileID uint64

// UnknownFileID is the sentinel used when a fileId cannot be determined
// (e.g. descendants reset by a rename).
const UnknownFileID FileID = 0

// FileStatus is the lifecycle state of a cached path.
type FileStatus int

const (
	NotExist FileStatus = iota
	FileExists
	DirectoryExists
	RenamedStatus
)

func (s FileStatus) String() string {
	switch s {
	case NotExist:
		return "NotExist"
	case FileExists:
		return "FileExists"
	case DirectoryExists:
		return "DirectoryExists"
	case RenamedStatus:
		return "Renamed"
	default:
		return "Unknown"
	}
}

// FileState is one file-state cache entry.
type FileState struct {
	Path       string
	Status     FileStatus
	FileID     FileID
	ExpiryTime time.Time // zero value means permanent (never expires)
	OpenCount  int64
	Attributes map[string]any
	Oplock     any // opaque oplock reference; may trigger a break callback
}

// Permanent reports whether the state is exempt from expiry sweeps.
func (s *FileState) Permanent() bool {
	return s.ExpiryTime.IsZero()
}

// Expired reports whether the state's lease has elapsed as of now.
func (s *FileState) Expired(now time.Time) bool {
	return !s.Permanent() && !now.Before(s.ExpiryTime)
}

// Session is the SMB session a NotifyRequest binds to.
type Session interface {
	// SendAsyncResponse attempts a non-blocking send; the bool result
	// distinguishes "sent" from "queued".
	SendAsyncResponse(packet []byte) (sent bool, err error)
	IsConnected() bool
	ID() string
}

// ResponseBuilder constructs the wire packet for a notify dispatch. event is
// nil when building the synthesized "enumerate directory" overflow response.
type ResponseBuilder interface {
	BuildNotificationResponse(event *ChangeEvent, req *NotifyRequest) ([]byte, error)
}

// NotifyRequest is one outstanding client watch.
type NotifyRequest struct {
	Session   Session
	RequestID string

	WatchPath string
	Filter    NotifyChange
	WatchTree bool

	Completed  bool
	ExpiryTime time.Time

	BufferedEvents []ChangeEvent
	Overflowed     bool
}

// StateListener is notified of file-state cache lifecycle transitions.
type StateListener interface {
	StateClosed(state *FileState)
	// StateExpired is consulted during a sweep; returning false vetoes
	// the expiry of this specific state.
	StateExpired(state *FileState) bool
}

// PoolListener is notified of DB connection pool online/offline transitions.
type PoolListener interface {
	DatabaseOnlineStatus(online bool)
}
