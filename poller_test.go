package evloop

import (
	"testing"
	"time"
)

func TestPollerWaitTimeout(t *testing.T) {
	p, err := newPoller()
	if err != nil {
		t.Fatalf("newPoller: %v", err)
	}
	defer p.close()

	start := time.Now()
	if err := p.wait(20); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Fatalf("wait(20) returned after %v", elapsed)
	}
}

func TestPollerWaitZeroDoesNotBlock(t *testing.T) {
	p, err := newPoller()
	if err != nil {
		t.Fatalf("newPoller: %v", err)
	}
	defer p.close()

	start := time.Now()
	if err := p.wait(0); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("wait(0) blocked for %v", elapsed)
	}
}

func TestPollerWakeupInterruptsWait(t *testing.T) {
	p, err := newPoller()
	if err != nil {
		t.Fatalf("newPoller: %v", err)
	}
	defer p.close()

	done := make(chan error, 1)
	go func() { done <- p.wait(-1) }()

	time.Sleep(5 * time.Millisecond)
	p.wakeup()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("wakeup did not interrupt an indefinite wait")
	}
}

func TestPollerWakeupBeforeWait(t *testing.T) {
	p, err := newPoller()
	if err != nil {
		t.Fatalf("newPoller: %v", err)
	}
	defer p.close()

	// A wakeup issued while nobody waits must satisfy the next wait
	// instead of being lost.
	p.wakeup()

	done := make(chan error, 1)
	go func() { done <- p.wait(-1) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("pre-issued wakeup was lost")
	}
}
