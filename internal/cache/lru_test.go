package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](4, time.Minute).WithClock(clock.Now)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}
	clock.Advance(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to expire at its ttl")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be dropped on read")
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestCleanExpiredAndManagerSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.Now)
	c.Set("short", 1)
	c.SetWithTTL("long", 2, time.Hour)
	clock.Advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatalf("long-lived entry should remain")
	}
	m.Stop() // never started
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}
