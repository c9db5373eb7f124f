package threadpool

import "time"

// TimedThreadRequest is scheduled to run at RunAt, optionally repeating every
// RepeatInterval. RunAt's zero value is the "paused" sentinel: the request
// stays queued but never fires until re-scheduled with QueueTimed.
type TimedThreadRequest struct {
	Name           string
	RunAt          time.Time
	RepeatInterval time.Duration
	Run            func()

	pool    *Pool // back-pointer used only for re-queue, never for destruction
	inQueue bool
	index   int // heap.Interface bookkeeping
}

// Paused reports whether RunAt is the zero-value sentinel.
func (t *TimedThreadRequest) Paused() bool {
	return t.RunAt.IsZero()
}

// timedQueue is a container/heap priority queue ordered by RunAt, with
// paused items sorted last. Ties among equal RunAt values are broken by
// heap mechanics and are not contractual (spec.md's "unstable compareTo"
// open question: observable ordering on ties is unspecified here too).
type timedQueue []*TimedThreadRequest

func (q timedQueue) Len() int { return len(q) }

func (q timedQueue) Less(i, j int) bool {
	pi, pj := q[i].Paused(), q[j].Paused()
	if pi != pj {
		return pj // i sorts first only if j is paused and i isn't
	}
	if pi && pj {
		return false
	}
	return q[i].RunAt.Before(q[j].RunAt)
}

func (q timedQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timedQueue) Push(x any) {
	treq := x.(*TimedThreadRequest)
	treq.index = len(*q)
	treq.inQueue = true
	*q = append(*q, treq)
}

func (q *timedQueue) Pop() any {
	old := *q
	n := len(old)
	treq := old[n-1]
	old[n-1] = nil
	treq.index = -1
	treq.inQueue = false
	*q = old[:n-1]
	return treq
}
