package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCache_Expiry(t *testing.T) {
	ttl := 30 * time.Minute
	tests := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{"immediately", 0, true},
		{"just before ttl", ttl - time.Nanosecond, true},
		{"at ttl", ttl, false},
		{"after ttl", ttl + time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			c := New[string](ttl, WithClock(clock.Now))
			c.Put("https://example.com", "v")

			clock.Advance(tt.elapsed)
			got, ok := c.Get("https://example.com")
			if ok != tt.wantHit {
				t.Fatalf("Get() hit = %v, want %v", ok, tt.wantHit)
			}
			if ok && got != "v" {
				t.Errorf("Get() = %q, want v", got)
			}
			if !tt.wantHit && c.Len() != 0 {
				t.Errorf("expired entry not removed on lookup, Len() = %d", c.Len())
			}
		})
	}
}

func TestCache_PutOverwritesAndRefreshes(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, WithClock(clock.Now))

	c.Put("k", 1)
	clock.Advance(50 * time.Second)
	c.Put("k", 2)
	clock.Advance(50 * time.Second)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Errorf("Get() = %d, %v; want 2, true", got, ok)
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[int](time.Minute)
	c.Put("a", 1)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("Get() hit after Delete")
	}
}

func TestCache_Purge(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, WithClock(clock.Now))

	c.Put("old1", 1)
	c.Put("old2", 2)
	clock.Advance(30 * time.Second)
	c.Put("new", 3)
	clock.Advance(30 * time.Second)

	if n := c.Purge(); n != 2 {
		t.Errorf("Purge() = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("unexpired entry purged")
	}
}

func TestCache_RunSweepsUntilCancelled(t *testing.T) {
	c := New[int](time.Millisecond)
	c.Put("k", 1)

	ctx, cancel := context.WithCancel(context.Background())
	purged := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond, func(n int) {
			select {
			case purged <- n:
			default:
			}
		})
		close(done)
	}()

	select {
	case n := <-purged:
		if n != 1 {
			t.Errorf("purged %d entries, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Put(key, i)
				c.Get(key)
				if j%50 == 0 {
					c.Purge()
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 10 {
		t.Errorf("Len() = %d, want 10", c.Len())
	}
}
