// Package notify implements the change-notification dispatcher: it holds
// the set of active NotifyRequests, matches incoming ChangeEvents against
// them, dispatches or buffers responses, and re-arms/expires requests.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
	"github.com/gocifsd/smbnotifyd/internal/logger"
	"github.com/gocifsd/smbnotifyd/internal/threadpool"
	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

// requestKey identifies "the same watch" across a client's re-arm calls. The
// teacher's CHANGE_NOTIFY handler keys re-arm by the directory handle
// (FileID); our NotifyRequest has no handle, so the session/requestId pair —
// the client-supplied opaque identifier the teacher's doc comment says is
// "echoed back" — plays the same role.
type requestKey struct {
	sessionID string
	requestID string
}

func keyOf(req *coretypes.NotifyRequest) requestKey {
	id := ""
	if req.Session != nil {
		id = req.Session.ID()
	}
	return requestKey{sessionID: id, requestID: req.RequestID}
}

// pendingSend is a (request, packet) tuple collected while the dispatcher's
// lock is held and sent only after it is released.
type pendingSend struct {
	req    *coretypes.NotifyRequest
	packet []byte
}

// Config configures a Dispatcher.
type Config struct {
	DefaultLease time.Duration
	BufferLimit  int
}

// Dispatcher maintains active NotifyRequests and dispatches ChangeEvents
// against them. A single mutex protects the request list and index;
// callbacks into sessions and response builders always happen after the
// lock is released.
type Dispatcher struct {
	mu       sync.Mutex
	requests []*coretypes.NotifyRequest
	index    map[requestKey]*coretypes.NotifyRequest
	mask     coretypes.NotifyChange

	builder      coretypes.ResponseBuilder
	defaultLease time.Duration
	bufferLimit  int

	pool  *threadpool.Pool
	sweep *threadpool.TimedThreadRequest

	metrics metrics.NotifyMetrics
}

// SetMetrics attaches a metrics sink. Passing nil (the default) disables
// observation entirely.
func (d *Dispatcher) SetMetrics(m metrics.NotifyMetrics) {
	d.metrics = m
}

// New creates a Dispatcher. If pool is non-nil, an additional periodic sweep
// of expired requests (which never dispatches, only removes) is registered
// with it at half of cfg.DefaultLease.
func New(cfg Config, builder coretypes.ResponseBuilder, pool *threadpool.Pool) *Dispatcher {
	if cfg.DefaultLease <= 0 {
		cfg.DefaultLease = 10 * time.Minute
	}
	if cfg.BufferLimit <= 0 {
		cfg.BufferLimit = 64
	}

	d := &Dispatcher{
		index:        make(map[requestKey]*coretypes.NotifyRequest),
		builder:      builder,
		defaultLease: cfg.DefaultLease,
		bufferLimit:  cfg.BufferLimit,
	}

	if pool != nil {
		d.pool = pool
		d.sweep = &threadpool.TimedThreadRequest{
			Name:           "notify-expiry-sweep",
			RunAt:          time.Now().Add(cfg.DefaultLease / 2),
			RepeatInterval: cfg.DefaultLease / 2,
			Run:            d.periodicSweep,
		}
		pool.QueueTimed(d.sweep)
	}

	return d
}

// Close cancels the periodic sweep, if one is registered.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d.sweep != nil && d.pool != nil {
		d.pool.RemoveTimed(d.sweep)
	}
	return nil
}

// AddRequest appends req and recomputes the global change set.
func (d *Dispatcher) AddRequest(req *coretypes.NotifyRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(req)
}

func (d *Dispatcher) addLocked(req *coretypes.NotifyRequest) {
	if req.ExpiryTime.IsZero() {
		req.ExpiryTime = time.Now().Add(d.defaultLease)
	}
	d.requests = append(d.requests, req)
	d.index[keyOf(req)] = req
	d.recomputeMaskLocked()
	metrics.RecordActiveRequests(d.metrics, len(d.requests))
}

// RemoveRequest removes req. If updateMask is false, the caller is
// responsible for a later recomputation (for callers removing many requests
// in a batch).
func (d *Dispatcher) RemoveRequest(req *coretypes.NotifyRequest, updateMask bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(req)
	if updateMask {
		d.recomputeMaskLocked()
	}
	metrics.RecordActiveRequests(d.metrics, len(d.requests))
}

func (d *Dispatcher) removeLocked(req *coretypes.NotifyRequest) {
	for i, r := range d.requests {
		if r == req {
			d.requests = append(d.requests[:i], d.requests[i+1:]...)
			break
		}
	}
	delete(d.index, keyOf(req))
}

// RemoveAllForSession batch-removes every request bound to sessionID and
// recomputes the global change set once.
func (d *Dispatcher) RemoveAllForSession(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.requests[:0]
	for _, r := range d.requests {
		bound := r.Session != nil && r.Session.ID() == sessionID
		if bound {
			delete(d.index, keyOf(r))
			continue
		}
		kept = append(kept, r)
	}
	d.requests = kept
	d.recomputeMaskLocked()
	metrics.RecordActiveRequests(d.metrics, len(d.requests))
}

// WantsEvent is the fast predicate a filesystem driver consults before
// constructing a ChangeEvent, avoiding the allocation when no request could
// possibly care.
func (d *Dispatcher) WantsEvent(change coretypes.FSChange, isDirectory bool) bool {
	mask := coretypes.ChangeEvent{Change: change, IsDirectory: isDirectory}.NotifyMask()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mask.Intersects(mask)
}

func (d *Dispatcher) recomputeMaskLocked() {
	var mask coretypes.NotifyChange
	for _, r := range d.requests {
		mask |= r.Filter
	}
	d.mask = mask
}

// Arm registers req as a new watch, or — if a watch already exists under the
// same (session, requestId) identity — reuses it and drains any buffered
// events via SendBuffered instead of creating a duplicate.
func (d *Dispatcher) Arm(req *coretypes.NotifyRequest) {
	d.mu.Lock()
	existing, ok := d.index[keyOf(req)]
	if ok {
		existing.Session = req.Session
		existing.WatchPath = req.WatchPath
		existing.Filter = req.Filter
		existing.WatchTree = req.WatchTree
	}
	d.mu.Unlock()

	if ok {
		d.SendBuffered(existing)
		return
	}
	d.AddRequest(req)
}

// HandleEvent matches event against every active request, dispatching
// immediately to completed-false requests and buffering onto completed-true
// requests. Sends happen after the lock is released.
func (d *Dispatcher) HandleEvent(event coretypes.ChangeEvent) {
	mapped := event.NotifyMask()
	path := coretypes.NormalizedPath(event.Path)
	now := time.Now()

	d.mu.Lock()
	var sends []pendingSend
	var expiredAny bool
	var expiredCount, bufferedCount, overflowCount int

	// In-place filter: reuse d.requests' backing array for the surviving
	// requests so no removal mutates the slice while it is being ranged
	// over (the write index never outruns the read index).
	kept := d.requests[:0]
	for _, req := range d.requests {
		if now.After(req.ExpiryTime) || now.Equal(req.ExpiryTime) {
			delete(d.index, keyOf(req))
			expiredAny = true
			expiredCount++
			continue
		}
		kept = append(kept, req)

		if !req.Filter.Intersects(mapped) {
			continue
		}
		if !matches(req, path, event.IsDirectory) {
			continue
		}

		if !req.Completed {
			packet, err := d.buildResponse(&event, req)
			if err != nil {
				logger.Error("notify: failed to build response", "error", err, "path", path)
				continue
			}
			sends = append(sends, pendingSend{req: req, packet: packet})
			req.Completed = true
			req.ExpiryTime = now.Add(d.defaultLease)
			continue
		}

		if req.Overflowed {
			continue
		}
		if len(req.BufferedEvents) >= d.bufferLimit {
			req.Overflowed = true
			req.BufferedEvents = nil
			overflowCount++
			continue
		}
		req.BufferedEvents = append(req.BufferedEvents, event)
		bufferedCount++
	}
	d.requests = kept

	if expiredAny {
		d.recomputeMaskLocked()
		metrics.RecordActiveRequests(d.metrics, len(d.requests))
	}
	d.mu.Unlock()

	metrics.RecordExpired(d.metrics, expiredCount)
	for i := 0; i < bufferedCount; i++ {
		metrics.RecordBuffered(d.metrics)
	}
	for i := 0; i < overflowCount; i++ {
		metrics.RecordOverflow(d.metrics)
	}
	for _, s := range sends {
		metrics.RecordDispatched(d.metrics)
		d.send(s.req, s.packet)
	}
}

// matches implements the event-matching path/tree predicate from step 3c of
// the matching algorithm.
func matches(req *coretypes.NotifyRequest, path string, isDirectory bool) bool {
	if path == "" && req.WatchTree {
		return true
	}
	if req.WatchTree && strings.HasPrefix(path, req.WatchPath) {
		return true
	}
	if isDirectory && path == req.WatchPath {
		return true
	}
	if !isDirectory {
		parent, _ := splitPath(path)
		return parent == req.WatchPath
	}
	return false
}

// splitPath splits a normalized, backslash-separated path into (parent,
// name). A path with no separator has an empty parent.
func splitPath(path string) (parent, name string) {
	idx := strings.LastIndex(path, `\`)
	if idx < 0 {
		return "", path
	}
	if idx == 0 {
		return `\`, path[1:]
	}
	return path[:idx], path[idx+1:]
}

// SendBuffered drains req's buffer (called on client re-arm): a single
// synthesized "enumerate" notification if the buffer overflowed, otherwise
// one notification per buffered event in insertion order.
func (d *Dispatcher) SendBuffered(req *coretypes.NotifyRequest) {
	d.mu.Lock()
	overflowed := req.Overflowed
	buffered := req.BufferedEvents
	req.BufferedEvents = nil
	req.Overflowed = false
	req.Completed = true
	req.ExpiryTime = time.Now().Add(d.defaultLease)
	d.mu.Unlock()

	if overflowed {
		packet, err := d.buildResponse(nil, req)
		if err != nil {
			logger.Error("notify: failed to build enumerate response", "error", err)
			return
		}
		metrics.RecordDispatched(d.metrics)
		d.send(req, packet)
		return
	}

	for i := range buffered {
		packet, err := d.buildResponse(&buffered[i], req)
		if err != nil {
			logger.Error("notify: failed to build buffered response", "error", err)
			continue
		}
		metrics.RecordDispatched(d.metrics)
		d.send(req, packet)
	}
}

func (d *Dispatcher) buildResponse(event *coretypes.ChangeEvent, req *coretypes.NotifyRequest) ([]byte, error) {
	if d.builder == nil {
		return nil, coretypes.NewClosedError("response builder")
	}
	return d.builder.BuildNotificationResponse(event, req)
}

func (d *Dispatcher) send(req *coretypes.NotifyRequest, packet []byte) {
	if req.Session == nil || !req.Session.IsConnected() {
		return
	}
	if _, err := req.Session.SendAsyncResponse(packet); err != nil {
		logger.Warn("notify: send failed", "session", req.Session.ID(), "error", err)
	}
}

// periodicSweep removes requests whose lease has already elapsed, without
// dispatching anything — additive coverage for an idle share where
// handleEvent's opportunistic expiry would otherwise never run.
func (d *Dispatcher) periodicSweep() {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	var removedAny bool
	var removedCount int
	kept := d.requests[:0]
	for _, r := range d.requests {
		if now.After(r.ExpiryTime) || now.Equal(r.ExpiryTime) {
			delete(d.index, keyOf(r))
			removedAny = true
			removedCount++
			continue
		}
		kept = append(kept, r)
	}
	d.requests = kept
	if removedAny {
		d.recomputeMaskLocked()
	}
	metrics.RecordActiveRequests(d.metrics, len(d.requests))
	metrics.RecordExpired(d.metrics, removedCount)
}
