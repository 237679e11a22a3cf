package cache

import (
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache must miss")
	}

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected hit with 1, got %d %v", v, ok)
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("set must overwrite, got %d", v)
	}
	if c.Size() != 1 {
		t.Errorf("overwrite must not grow the cache, size %d", c.Size())
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry must survive")
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry must miss")
	}

	c.Set("b", 2)
	time.Sleep(5 * time.Millisecond)
	if cleaned := c.CleanExpired(); cleaned != 1 {
		t.Errorf("expected 1 cleaned entry, got %d", cleaned)
	}
}

func TestLRUPurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Purge()
	if c.Size() != 0 {
		t.Errorf("purge must empty the cache, size %d", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("purged entry must miss")
	}
}
