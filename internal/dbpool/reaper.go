package dbpool

import (
	"context"
	"time"

	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

// reap runs on its own goroutine, waking every cfg.Lease interval to expire
// leases, trim the free list, and — every OnlineCheckInterval cycles, or
// always while offline — probe liveness and attempt recovery.
func (p *Pool) reap() {
	defer close(p.stopped)

	ticker := time.NewTicker(p.cfg.Lease)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.reapOnce()
		}
	}
}

func (p *Pool) reapOnce() {
	ctx := context.Background()
	now := time.Now()
	defer metrics.RecordReapCycle(p.metrics)

	p.mu.Lock()
	var expired []Conn
	var permanent []Conn
	for conn, l := range p.leased {
		if !l.permanent() && l.ExpireTime.Before(now) {
			expired = append(expired, conn)
			continue
		}
		if l.permanent() {
			permanent = append(permanent, conn)
		}
	}
	for _, conn := range expired {
		delete(p.leased, conn)
	}
	p.observeCountsLocked()
	p.mu.Unlock()

	for _, conn := range expired {
		conn.Release()
	}

	for _, conn := range permanent {
		if err := conn.Ping(ctx); err != nil {
			p.mu.Lock()
			delete(p.leased, conn)
			p.observeCountsLocked()
			p.mu.Unlock()
			conn.Release()
		}
	}

	p.trimFree()

	p.mu.Lock()
	p.cycle++
	checkLiveness := !p.online || p.cycle%p.cfg.OnlineCheckInterval == 0
	p.mu.Unlock()

	if checkLiveness {
		p.checkOnlineStatus(ctx)
	}
}

// trimFree closes excess free connections down to cfg.Max.
func (p *Pool) trimFree() {
	p.mu.Lock()
	var excess []Conn
	total := len(p.leased) + len(p.free)
	for total > p.cfg.Max && len(p.free) > 0 {
		p.free, excess = p.free[:len(p.free)-1], append(excess, p.free[len(p.free)-1])
		total--
	}
	p.mu.Unlock()

	for _, conn := range excess {
		conn.Release()
	}
}

// checkOnlineStatus probes the free list for dead connections and, if both
// pools are empty, marks the pool offline (or attempts recovery if already
// offline).
func (p *Pool) checkOnlineStatus(ctx context.Context) {
	p.mu.Lock()
	snapshot := append([]Conn(nil), p.free...)
	p.free = p.free[:0]
	p.mu.Unlock()

	var alive []Conn
	for _, conn := range snapshot {
		if err := conn.Ping(ctx); err != nil {
			conn.Release()
			continue
		}
		alive = append(alive, conn)
	}

	p.mu.Lock()
	p.free = append(p.free, alive...)
	empty := len(p.leased) == 0 && len(p.free) == 0
	offline := !p.online
	p.mu.Unlock()

	if empty {
		p.markOffline()
		offline = true
	}
	if !offline {
		return
	}

	conn, err := p.connector.Connect(ctx)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, conn)
	p.mu.Unlock()
	p.markOnline()
}
