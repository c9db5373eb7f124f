package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Core component / request identification
	KeyComponent  = "component"   // threadpool, dbpool, filecache, notify
	KeyRequestID  = "request_id"  // opaque notify/thread request id
	KeySessionID  = "session_id"  // SMB session identifier
	KeyPath       = "path"        // normalized share-relative path
	KeyOldPath    = "old_path"    // source path for rename
	KeyWatchPath  = "watch_path"  // NotifyRequest.watchPath
	KeyWatchTree  = "watch_tree"  // NotifyRequest.watchTree
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
)

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Component returns a slog.Attr naming the emitting core component.
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Path returns a slog.Attr for a normalized path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
