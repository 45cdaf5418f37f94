package server

import (
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestIPRateLimiter(t *testing.T) {
	clk := &testClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewIPRateLimiter(100, 15*time.Minute)
	l.now = clk.Now

	for i := 0; i < 100; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected within burst", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request 101 allowed")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("second IP should have its own bucket")
	}

	// One token refills every 9s.
	clk.Advance(9 * time.Second)
	if !l.Allow("10.0.0.1") {
		t.Error("token not refilled after 9s")
	}
	if l.Allow("10.0.0.1") {
		t.Error("only one token should have refilled")
	}
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	clk := &testClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewIPRateLimiter(10, time.Minute)
	l.now = clk.Now

	l.Allow("a")
	clk.Advance(30 * time.Second)
	l.Allow("b")

	if n := l.Cleanup(); n != 0 {
		t.Errorf("Cleanup removed %d, want 0", n)
	}
	clk.Advance(45 * time.Second)
	if n := l.Cleanup(); n != 1 {
		t.Errorf("Cleanup removed %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}
