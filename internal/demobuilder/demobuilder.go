// Package demobuilder implements a coretypes.ResponseBuilder that renders a
// human-readable line instead of an SMB2 FSCTL_SRV_NOTIFY wire response —
// SMB wire framing is a named external collaborator, not reimplemented here.
package demobuilder

import (
	"fmt"
	"time"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
)

// Builder is a coretypes.ResponseBuilder that formats notifications as text.
type Builder struct{}

// New creates a Builder.
func New() *Builder { return &Builder{} }

// BuildNotificationResponse renders event as a single descriptive line, or
// an "ENUMERATE" line when event is nil (the overflow case).
func (b *Builder) BuildNotificationResponse(event *coretypes.ChangeEvent, req *coretypes.NotifyRequest) ([]byte, error) {
	now := time.Now().Format(time.RFC3339Nano)
	if event == nil {
		return fmt.Appendf(nil, "[%s] requestId=%s watch=%s ENUMERATE (buffer overflowed, re-enumerate directory)",
			now, req.RequestID, req.WatchPath), nil
	}
	if event.Change == coretypes.Renamed {
		return fmt.Appendf(nil, "[%s] requestId=%s watch=%s RENAMED %s -> %s dir=%v",
			now, req.RequestID, req.WatchPath, event.OldPath, event.Path, event.IsDirectory), nil
	}
	return fmt.Appendf(nil, "[%s] requestId=%s watch=%s %s %s dir=%v",
		now, req.RequestID, req.WatchPath, event.Change, event.Path, event.IsDirectory), nil
}
