package utils

import (
	"testing"
	"time"
)

func TestTTLCache(t *testing.T) {
	t.Run("SetGet", func(t *testing.T) {
		c := NewTTLCache[string](2, time.Minute)
		c.Set("a", "1")

		v, ok := c.Get("a")
		if !ok || v != "1" {
			t.Fatalf("expected cached value 1, got %q (ok=%v)", v, ok)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		c := NewTTLCache[int](2, -time.Second)
		c.Set("a", 1)

		if _, ok := c.Get("a"); ok {
			t.Fatal("expired entry should not be returned")
		}
		if c.Len() != 0 {
			t.Errorf("expired entry should be removed, len=%d", c.Len())
		}
	})

	t.Run("Evicts", func(t *testing.T) {
		c := NewTTLCache[int](2, time.Minute)
		c.Set("a", 1)
		c.Set("b", 2)
		c.Set("c", 3)

		if _, ok := c.Get("a"); ok {
			t.Error("oldest entry should be evicted")
		}
		if c.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", c.Len())
		}
	})
}

func TestGlobalCache(t *testing.T) {
	InitCache()
	CacheSet("k", 42, time.Minute)

	v, ok := CacheGet("k")
	if !ok || v.(int) != 42 {
		t.Fatalf("expected 42, got %v", v)
	}

	CacheDelete("k")
	if _, ok := CacheGet("k"); ok {
		t.Error("deleted key should be gone")
	}
}
