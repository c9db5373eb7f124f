// Package dbpool implements a leased database connection pool on top of
// pgxpool: callers acquire a connection for a bounded or permanent lease, a
// background reaper reclaims expired leases and trims the free list, and
// online/offline transitions are published to a PoolListener.
package dbpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
	"github.com/gocifsd/smbnotifyd/internal/logger"
	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

// Permanent, passed to Acquire, requests a lease that never expires on its
// own (it is still subject to the reaper's liveness probe).
const Permanent time.Duration = -1

// ErrPoolExhausted is returned by Acquire when the pool is online but already
// holds db.max connections and none are free.
var ErrPoolExhausted = errors.New("dbpool: exhausted")

// Conn is the subset of *pgxpool.Conn this package depends on. *pgxpool.Conn
// satisfies it without an adapter.
type Conn interface {
	Ping(ctx context.Context) error
	Release()
}

// Connector creates a new Conn. The production implementation wraps a
// *pgxpool.Pool; tests substitute a fake to avoid dialing a real server.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

type pgxConnector struct {
	pool *pgxpool.Pool
}

func (c *pgxConnector) Connect(ctx context.Context) (Conn, error) {
	return c.pool.Acquire(ctx)
}

// Config configures a Pool.
type Config struct {
	Min                 int
	Max                 int
	Lease               time.Duration
	OnlineCheckInterval int
}

// DbLease pairs a checked-out connection with its expiry time. A zero
// ExpireTime means the lease is permanent.
type DbLease struct {
	Conn       Conn
	ExpireTime time.Time
}

func (l *DbLease) permanent() bool { return l.ExpireTime.IsZero() }

// Pool hands out leased connections, reclaims them on expiry or server
// closure, and tracks online/offline state.
type Pool struct {
	cfg       Config
	connector Connector
	closer    func()
	listener  coretypes.PoolListener

	mu     sync.Mutex
	leased map[Conn]*DbLease
	free   []Conn
	online bool
	cycle  int

	stop      chan struct{}
	stopped   chan struct{}
	startOnce sync.Once

	metrics metrics.DbPoolMetrics
}

// SetMetrics attaches a metrics sink. Passing nil (the default) disables
// observation entirely.
func (p *Pool) SetMetrics(m metrics.DbPoolMetrics) {
	p.metrics = m
}

func (p *Pool) observeCountsLocked() {
	metrics.RecordLeasedCount(p.metrics, len(p.leased))
	metrics.RecordFreeCount(p.metrics, len(p.free))
}

// New wraps an already-dialed *pgxpool.Pool. Shutdown closes the underlying
// pool in addition to every leased and free connection dbpool is tracking.
func New(cfg Config, underlying *pgxpool.Pool, listener coretypes.PoolListener) *Pool {
	return newPool(cfg, &pgxConnector{pool: underlying}, underlying.Close, listener)
}

func newPool(cfg Config, connector Connector, closer func(), listener coretypes.PoolListener) *Pool {
	if cfg.Max <= 0 {
		cfg.Max = 10
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 30 * time.Second
	}
	if cfg.OnlineCheckInterval <= 0 {
		cfg.OnlineCheckInterval = 20
	}
	return &Pool{
		cfg:       cfg,
		connector: connector,
		closer:    closer,
		listener:  listener,
		leased:    make(map[Conn]*DbLease),
		online:    true,
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start launches the background reaper. Calling Start more than once has no
// effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		go p.reap()
	})
}

// Acquire checks out a connection with the given lease duration. A zero lease
// selects the configured default; Permanent (or any negative duration)
// requests a lease that only the liveness probe can revoke. On an offline pool, Acquire tries exactly one
// fresh connection and gives up if that fails.
func (p *Pool) Acquire(ctx context.Context, lease time.Duration) (*DbLease, error) {
	if lease == 0 {
		lease = p.cfg.Lease
	}

	p.mu.Lock()
	online := p.online
	for len(p.free) > 0 {
		conn := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.mu.Unlock()

		if err := conn.Ping(ctx); err != nil {
			conn.Release()
			p.mu.Lock()
			continue
		}
		return p.lease(conn, lease), nil
	}
	leasedCount := len(p.leased)
	p.mu.Unlock()

	if online && leasedCount >= p.cfg.Max {
		metrics.RecordAcquireFailure(p.metrics)
		return nil, ErrPoolExhausted
	}

	conn, err := p.connector.Connect(ctx)
	if err != nil {
		metrics.RecordAcquireFailure(p.metrics)
		if !online {
			return nil, coretypes.NewServerUnreachableError("dbpool")
		}
		p.markOffline()
		return nil, coretypes.NewServerUnreachableError("dbpool")
	}
	if !online {
		p.markOnline()
	}
	return p.lease(conn, lease), nil
}

func (p *Pool) lease(conn Conn, duration time.Duration) *DbLease {
	l := &DbLease{Conn: conn}
	if duration > 0 {
		l.ExpireTime = time.Now().Add(duration)
	}
	p.mu.Lock()
	p.leased[conn] = l
	p.observeCountsLocked()
	p.mu.Unlock()
	return l
}

// Release returns a leased connection to the free pool.
func (p *Pool) Release(l *DbLease) {
	if l == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.leased[l.Conn]; !ok {
		return
	}
	delete(p.leased, l.Conn)
	p.free = append(p.free, l.Conn)
	p.observeCountsLocked()
}

// Renew extends (or shortens) a lease's expiry time. A zero newExpire makes
// the lease permanent.
func (p *Pool) Renew(l *DbLease, newExpire time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l.ExpireTime = newExpire
}

// WaitForConnection blocks until a connection can be acquired and released,
// or the deadline elapses, and reports which happened.
func (p *Pool) WaitForConnection(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		l, err := p.Acquire(ctx, Permanent)
		if err == nil {
			p.Release(l)
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Shutdown stops the reaper and closes every tracked connection plus the
// underlying pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	close(p.stop)

	done := make(chan struct{})
	go func() {
		<-p.stopped
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	for conn := range p.leased {
		conn.Release()
	}
	p.leased = make(map[Conn]*DbLease)
	for _, conn := range p.free {
		conn.Release()
	}
	p.free = nil
	p.mu.Unlock()

	if p.closer != nil {
		p.closer()
	}
	return nil
}

func (p *Pool) markOffline() {
	p.mu.Lock()
	wasOnline := p.online
	p.online = false
	p.mu.Unlock()
	metrics.RecordOnlineStatus(p.metrics, false)
	if wasOnline {
		p.notifyOnlineStatus(false)
	}
}

func (p *Pool) markOnline() {
	p.mu.Lock()
	wasOffline := !p.online
	p.online = true
	p.mu.Unlock()
	metrics.RecordOnlineStatus(p.metrics, true)
	if wasOffline {
		p.notifyOnlineStatus(true)
	}
}

func (p *Pool) notifyOnlineStatus(online bool) {
	if p.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("dbpool: listener panicked in DatabaseOnlineStatus", "panic", r)
		}
	}()
	p.listener.DatabaseOnlineStatus(online)
}
