// Package threadpool implements an immediate FIFO worker pool plus a
// time-ordered priority queue for deferred, optionally-repeating work.
package threadpool

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/gocifsd/smbnotifyd/internal/logger"
	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

// ThreadRequest is an opaque unit of immediate work.
type ThreadRequest func()

const (
	// MinWorkers is the lower clamp on worker count.
	MinWorkers = 4
	// MaxWorkers is the upper clamp on worker count.
	MaxWorkers = 250
	// DefaultWorkers is used when the caller passes 0.
	DefaultWorkers = 25

	// longSleep bounds the timed-dispatch thread's idle wait so it can
	// observe shutdown even when the timed queue is empty.
	longSleep = 24 * time.Hour
)

// clampWorkers enforces [MinWorkers, MaxWorkers], substituting DefaultWorkers
// for zero.
func clampWorkers(n int) int {
	if n == 0 {
		n = DefaultWorkers
	}
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// Pool executes ThreadRequest items with a bounded worker count and runs
// TimedThreadRequest items at their scheduled time on a dedicated
// timed-dispatch goroutine.
type Pool struct {
	queue chan ThreadRequest

	workers int
	wg      sync.WaitGroup

	timedMu   sync.Mutex
	timed     timedQueue
	wake      chan struct{}
	stop      chan struct{}
	stopped   chan struct{}
	startOnce sync.Once

	metrics metrics.ThreadPoolMetrics
}

// SetMetrics attaches a metrics sink. Passing nil (the default) disables
// observation entirely; call before Start for workers-gauge accuracy.
func (p *Pool) SetMetrics(m metrics.ThreadPoolMetrics) {
	p.metrics = m
}

// New creates a Pool with the given worker count (clamped to
// [MinWorkers, MaxWorkers]; 0 selects DefaultWorkers).
func New(workers int) *Pool {
	return &Pool{
		queue:   make(chan ThreadRequest, 1024),
		workers: clampWorkers(workers),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the worker goroutines and the timed-dispatch goroutine.
// Calling Start more than once has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		go p.timedDispatch()
		metrics.ObserveActiveWorkers(p.metrics, p.workers)
	})
}

// worker services the immediate FIFO queue. A request that panics is
// recovered and logged; the worker loop resumes — this is the only place in
// the pool where an unwind is allowed.
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case req, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(req)
		}
	}
}

func (p *Pool) run(req ThreadRequest) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("threadpool: request panicked", "panic", r)
			metrics.RecordPanicRecovered(p.metrics)
		}
		metrics.RecordTaskCompleted(p.metrics)
	}()
	req()
}

// Queue pushes req to the immediate FIFO; wakes one worker.
func (p *Pool) Queue(req ThreadRequest) {
	select {
	case p.queue <- req:
	case <-p.stop:
	}
	p.observeQueueDepth()
}

func (p *Pool) observeQueueDepth() {
	if p.metrics == nil {
		return
	}
	p.timedMu.Lock()
	timed := len(p.timed)
	p.timedMu.Unlock()
	metrics.ObserveQueueDepth(p.metrics, len(p.queue), timed)
}

// QueueMany pushes reqs atomically with respect to ordering among
// themselves; at least one worker is woken.
func (p *Pool) QueueMany(reqs []ThreadRequest) {
	for _, req := range reqs {
		p.Queue(req)
	}
}

// QueueTimed inserts treq into the time-ordered priority queue. If treq is
// already associated with this pool, it is first removed, then re-inserted.
// If the new item becomes the earliest non-paused item, the timed-dispatch
// goroutine is woken.
func (p *Pool) QueueTimed(treq *TimedThreadRequest) {
	p.timedMu.Lock()
	if treq.inQueue {
		heap.Remove(&p.timed, treq.index)
	}
	treq.pool = p
	heap.Push(&p.timed, treq)
	becameHead := p.timed[0] == treq
	p.timedMu.Unlock()

	if becameHead {
		p.wakeTimedDispatch()
	}
}

// RemoveTimed removes treq from the priority queue and clears its
// back-pointer. Returns false if treq was not queued.
func (p *Pool) RemoveTimed(treq *TimedThreadRequest) bool {
	p.timedMu.Lock()
	defer p.timedMu.Unlock()
	if !treq.inQueue {
		return false
	}
	heap.Remove(&p.timed, treq.index)
	treq.pool = nil
	return true
}

func (p *Pool) wakeTimedDispatch() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// timedDispatch implements the algorithm: sleep until the head is due, pop
// it, submit to the immediate queue, and reschedule if it repeats.
func (p *Pool) timedDispatch() {
	timer := time.NewTimer(longSleep)
	defer timer.Stop()

	for {
		wait := p.nextWait()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-p.stop:
			return
		case <-p.wake:
			continue
		case <-timer.C:
			p.fireDue()
		}
	}
}

// nextWait computes how long the timed-dispatch goroutine should sleep:
// longSleep if the queue is empty or the head is paused, otherwise the
// delay until the head's RunAt.
func (p *Pool) nextWait() time.Duration {
	p.timedMu.Lock()
	defer p.timedMu.Unlock()

	if len(p.timed) == 0 {
		return longSleep
	}
	head := p.timed[0]
	if head.Paused() {
		return longSleep
	}
	delay := time.Until(head.RunAt)
	if delay < 0 {
		return 0
	}
	return delay
}

// fireDue pops every head item whose RunAt has arrived, submits each to the
// immediate queue, and reschedules repeaters.
func (p *Pool) fireDue() {
	now := time.Now()
	for {
		p.timedMu.Lock()
		if len(p.timed) == 0 {
			p.timedMu.Unlock()
			return
		}
		head := p.timed[0]
		if head.Paused() || head.RunAt.After(now) {
			p.timedMu.Unlock()
			return
		}
		heap.Pop(&p.timed)
		head.pool = nil
		p.timedMu.Unlock()

		fn := head.Run
		p.Queue(ThreadRequest(fn))

		if head.RepeatInterval > 0 {
			head.RunAt = head.RunAt.Add(head.RepeatInterval)
			p.QueueTimed(head)
		}
	}
}

// Shutdown signals workers and the timed-dispatch goroutine to exit.
// In-flight requests complete naturally; ctx bounds how long Shutdown waits
// for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	close(p.stop)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
