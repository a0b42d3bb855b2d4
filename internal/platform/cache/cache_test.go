package cache

import (
	"testing"
	"time"
)

func TestCacheGetPut(t *testing.T) {
	c := New[string](4, time.Minute)

	c.Put("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Fatalf("Get = %q, %v; want alpha, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	c := New(4, 30*time.Second, WithClock[int](clock))

	c.Put("k", 42)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss at expiry boundary")
	}
}

func TestCacheExplicitEviction(t *testing.T) {
	c := New[int](4, time.Minute)
	c.Put("k", 1)
	c.Evict("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after eviction")
	}
}

func TestCacheCapacityBound(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	c := New(2, time.Minute, WithClock[int](clock))

	c.Put("a", 1)
	now = now.Add(time.Second)
	c.Put("b", 2)
	now = now.Add(time.Second)
	c.Put("c", 3)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	// "a" is closest to expiry and should have been evicted.
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected newest entry to survive")
	}
}
