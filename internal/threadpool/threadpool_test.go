package threadpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPool(t *testing.T, workers int) *Pool {
	t.Helper()
	p := New(workers)
	p.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

func TestClampWorkers(t *testing.T) {
	cases := map[int]int{
		0:    DefaultWorkers,
		1:    MinWorkers,
		4:    4,
		100:  100,
		1000: MaxWorkers,
	}
	for in, want := range cases {
		if got := clampWorkers(in); got != want {
			t.Errorf("clampWorkers(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestQueue_RunsRequest(t *testing.T) {
	p := newTestPool(t, 4)

	done := make(chan struct{})
	p.Queue(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request never ran")
	}
}

func TestQueue_FIFOPerProducer(t *testing.T) {
	// New clamps 1 up to MinWorkers; set the count directly so a single
	// worker forces strict ordering.
	p := New(1)
	p.workers = 1
	p.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		i := i
		p.Queue(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	p := newTestPool(t, 4)

	done := make(chan struct{})
	p.Queue(func() { panic("boom") })
	p.Queue(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool stalled after a panicking request")
	}
}

func TestQueueTimed_FiresAtRunAt(t *testing.T) {
	p := newTestPool(t, 4)

	var fired int32
	treq := &TimedThreadRequest{
		RunAt: time.Now().Add(30 * time.Millisecond),
		Run:   func() { atomic.AddInt32(&fired, 1) },
	}
	p.QueueTimed(treq)

	time.Sleep(200 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expected exactly one firing, got %d", fired)
	}
}

func TestQueueTimed_Repeats(t *testing.T) {
	p := newTestPool(t, 4)

	var fired int32
	treq := &TimedThreadRequest{
		RunAt:          time.Now().Add(20 * time.Millisecond),
		RepeatInterval: 40 * time.Millisecond,
		Run:            func() { atomic.AddInt32(&fired, 1) },
	}
	p.QueueTimed(treq)

	time.Sleep(250 * time.Millisecond)
	got := atomic.LoadInt32(&fired)
	if got < 3 {
		t.Fatalf("expected at least 3 firings in 250ms with a 40ms repeat, got %d", got)
	}
}

func TestRemoveTimed_PreventsFiring(t *testing.T) {
	p := newTestPool(t, 4)

	var fired int32
	treq := &TimedThreadRequest{
		RunAt: time.Now().Add(50 * time.Millisecond),
		Run:   func() { atomic.AddInt32(&fired, 1) },
	}
	p.QueueTimed(treq)

	if !p.RemoveTimed(treq) {
		t.Fatal("expected RemoveTimed to succeed on a queued request")
	}

	time.Sleep(150 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("removed request fired anyway")
	}
}

func TestRemoveTimed_IsIdempotentNoOp(t *testing.T) {
	p := newTestPool(t, 4)

	treq := &TimedThreadRequest{RunAt: time.Now().Add(time.Hour)}
	p.QueueTimed(treq)
	if !p.RemoveTimed(treq) {
		t.Fatal("expected first RemoveTimed to succeed")
	}
	if p.RemoveTimed(treq) {
		t.Fatal("expected second RemoveTimed to be a no-op returning false")
	}
}

func TestPausedRequestNeverFires(t *testing.T) {
	p := newTestPool(t, 4)

	var fired int32
	treq := &TimedThreadRequest{
		// zero-value RunAt: paused sentinel
		Run: func() { atomic.AddInt32(&fired, 1) },
	}
	p.QueueTimed(treq)

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("paused request fired")
	}
}

func TestShutdown_LetsInFlightComplete(t *testing.T) {
	p := New(4)
	p.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	p.Queue(func() {
		close(started)
		<-release
		close(finished)
	})

	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- p.Shutdown(ctx) }()

	close(release)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("in-flight request never completed")
	}

	if err := <-shutdownDone; err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}
