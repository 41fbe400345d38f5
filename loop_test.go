package evloop

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoopRunOneShot(t *testing.T) {
	l, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer l.Close()

	fired := 0
	NewTimer(l).Start(func(*Timer) { fired++ }, 5, 0)

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestLoopRunRepeatUntilStopped(t *testing.T) {
	l, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer l.Close()

	fired := 0
	tm := NewTimer(l)
	tm.Start(func(h *Timer) {
		fired++
		if fired == 3 {
			h.Stop()
		}
	}, 1, 1)

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fired != 3 {
		t.Fatalf("fired = %d, want 3", fired)
	}
}

func TestLoopRunEmptyReturns(t *testing.T) {
	l, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer l.Close()

	done := make(chan error, 1)
	go func() { done <- l.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return on an empty loop")
	}
}

func TestLoopStopFromOtherGoroutine(t *testing.T) {
	l, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer l.Close()

	// Far-future timer parks the loop in the poller.
	NewTimer(l).Start(func(*Timer) {}, 3600_000, 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		l.Stop()
	}()

	start := time.Now()
	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wg.Wait()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Stop did not interrupt the poll wait (took %v)", elapsed)
	}
}

func TestLoopRunReentrant(t *testing.T) {
	l, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer l.Close()

	var inner error
	NewTimer(l).Start(func(*Timer) { inner = l.Run() }, 1, 0)

	if err := l.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(inner, ErrLoopRunning) {
		t.Fatalf("nested Run = %v, want ErrLoopRunning", inner)
	}
}

func TestLoopPostRunsBeforeTimers(t *testing.T) {
	l, c := newTestLoop(t)

	var order []string
	NewTimer(l).Start(func(*Timer) { order = append(order, "timer") }, 5, 0)
	l.Post(func() { order = append(order, "posted") })

	c.now += 5
	l.RunOnce()

	if len(order) != 2 || order[0] != "posted" || order[1] != "timer" {
		t.Fatalf("order = %v, want [posted timer]", order)
	}
}

func TestLoopUnrefTimerDoesNotHoldRun(t *testing.T) {
	l, err := NewLoop()
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	defer l.Close()

	fired := 0
	tm := NewTimer(l)
	tm.Unref()
	tm.Start(func(*Timer) { fired++ }, 3600_000, 0)

	done := make(chan struct{})
	go func() {
		l.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run held alive by an unref'd timer")
	}
	if fired != 0 {
		t.Fatalf("unref'd far-future timer fired")
	}
	tm.Stop()
}

func TestLoopNowAdvancesOnlyOnUpdate(t *testing.T) {
	l, c := newTestLoop(t)

	was := l.Now()
	c.now += 100
	if l.Now() != was {
		t.Fatalf("Now() moved without UpdateTime")
	}
	l.UpdateTime()
	if l.Now() != was+100 {
		t.Fatalf("Now() = %d after UpdateTime, want %d", l.Now(), was+100)
	}
}
