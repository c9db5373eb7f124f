// Package demosession provides a fake SMB session: no real wire transport,
// just enough of coretypes.Session to drive internal/notify end-to-end and
// observe what the dispatcher would send.
package demosession

import (
	"sync"
	"sync/atomic"

	"github.com/gocifsd/smbnotifyd/internal/logger"
)

// Session is a fake coretypes.Session that logs every packet it would have
// sent instead of writing to a socket.
type Session struct {
	id        string
	connected atomic.Bool

	mu  sync.Mutex
	log [][]byte
}

// New creates a connected Session identified by id.
func New(id string) *Session {
	s := &Session{id: id}
	s.connected.Store(true)
	return s
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// IsConnected reports whether the session still accepts sends.
func (s *Session) IsConnected() bool { return s.connected.Load() }

// Disconnect marks the session as no longer connected, the way a dropped
// TCP connection would.
func (s *Session) Disconnect() { s.connected.Store(false) }

// SendAsyncResponse records packet and reports it as sent, unless the
// session has been disconnected.
func (s *Session) SendAsyncResponse(packet []byte) (bool, error) {
	if !s.IsConnected() {
		return false, nil
	}
	s.mu.Lock()
	s.log = append(s.log, packet)
	s.mu.Unlock()
	logger.Info("demosession: notification delivered", "session", s.id, "bytes", len(packet))
	return true, nil
}

// Sent returns every packet delivered so far, in order.
func (s *Session) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.log...)
}
