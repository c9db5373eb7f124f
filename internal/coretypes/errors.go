// Package coretypes holds the external contracts the dispatch core consumes
// from and exposes to its collaborators: the filesystem driver, the SMB
// session, the response builder, and the listener interfaces the cache and
// DB pool notify through.
package coretypes

// Code categorizes a CoreError.
type Code int

const (
	// ErrExpired indicates a request or lease was found stale.
	ErrExpired Code = iota
	// ErrDisconnected indicates a session write failed because the peer went away.
	ErrDisconnected
	// ErrClosed indicates an operation was attempted on a closed resource.
	ErrClosed
	// ErrServerUnreachable indicates a database connection attempt failed.
	ErrServerUnreachable
	// ErrNotFound indicates a cache-miss with create=false.
	ErrNotFound
	// ErrOverflowed indicates a NotifyRequest's buffer exceeded its cap.
	ErrOverflowed
)

func (c Code) String() string {
	switch c {
	case ErrExpired:
		return "expired"
	case ErrDisconnected:
		return "disconnected"
	case ErrClosed:
		return "closed"
	case ErrServerUnreachable:
		return "server_unreachable"
	case ErrNotFound:
		return "not_found"
	case ErrOverflowed:
		return "overflowed"
	default:
		return "unknown"
	}
}

// CoreError is the explicit error-variant type named in place of exception-driven
// control flow: every failure in the dispatch core is one of these Codes, never
// a caught broad exception.
type CoreError struct {
	Code    Code
	Message string
	Path    string
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// NewNotFoundError builds a CoreError for a cache-miss with create=false.
func NewNotFoundError(path string) *CoreError {
	return &CoreError{Code: ErrNotFound, Message: "not found", Path: path}
}

// NewExpiredError builds a CoreError for a stale NotifyRequest or lease.
func NewExpiredError(path string) *CoreError {
	return &CoreError{Code: ErrExpired, Message: "expired", Path: path}
}

// NewDisconnectedError builds a CoreError for a session send failure.
func NewDisconnectedError(sessionID string) *CoreError {
	return &CoreError{Code: ErrDisconnected, Message: "session disconnected", Path: sessionID}
}

// NewClosedError builds a CoreError for an operation on a closed resource.
func NewClosedError(what string) *CoreError {
	return &CoreError{Code: ErrClosed, Message: "closed", Path: what}
}

// NewServerUnreachableError builds a CoreError for a failed connection attempt.
func NewServerUnreachableError(dsn string) *CoreError {
	return &CoreError{Code: ErrServerUnreachable, Message: "server unreachable", Path: dsn}
}

// NewOverflowedError builds a CoreError for a buffer that exceeded its cap.
func NewOverflowedError(watchPath string) *CoreError {
	return &CoreError{Code: ErrOverflowed, Message: "buffer overflowed", Path: watchPath}
}

// IsNotFound reports whether err is a CoreError with code ErrNotFound.
func IsNotFound(err error) bool {
	ce, ok := err.(*CoreError)
	return ok && ce.Code == ErrNotFound
}

// IsExpired reports whether err is a CoreError with code ErrExpired.
func IsExpired(err error) bool {
	ce, ok := err.(*CoreError)
	return ok && ce.Code == ErrExpired
}
