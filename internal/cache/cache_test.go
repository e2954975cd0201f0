package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c=3, got %d %v", v, ok)
	}
	if stats := c.Stats(); stats.Evictions != 1 || stats.Entries != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLRUExpiresEntries(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[ArtifactKey, string](10, time.Hour, WithClock(func() time.Time { return now }))
	key := ArtifactKey{VideoID: "v1", Language: "en"}
	c.Set(key, "artifact")

	now = now.Add(59 * time.Minute)
	if _, ok := c.Get(key); !ok {
		t.Fatal("expected entry before ttl")
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected entry to expire at ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped, len=%d", c.Len())
	}
}

func TestLRUOverwriteAndDelete(t *testing.T) {
	c := New[string, string](0, 0)
	c.Set("k", "one")
	c.Set("k", "two")
	if v, _ := c.Get("k"); v != "two" {
		t.Fatalf("expected last writer to win, got %q", v)
	}
	if !c.Delete("k") || c.Delete("k") {
		t.Fatal("unexpected delete results")
	}
	c.Set("x", "y")
	c.Purge()
	if c.Len() != 0 {
		t.Fatal("expected purge to empty cache")
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := New[int, int](64, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Set(i%100, g)
				c.Get(i % 50)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Fatalf("capacity exceeded: %d", c.Len())
	}
}

func TestContentKey(t *testing.T) {
	a := NewContentKey("translate", "ab", "c")
	b := NewContentKey("translate", "a", "bc")
	if a == b {
		t.Fatal("expected separator to distinguish part boundaries")
	}
	if NewContentKey("translate", "ab", "c") != a {
		t.Fatal("expected deterministic keys")
	}
	if len(a.Digest) != 64 {
		t.Fatalf("unexpected digest length %d", len(a.Digest))
	}
}
