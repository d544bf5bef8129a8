package utils

import (
	"errors"
	"testing"
	"time"
)

func newCache(t *testing.T, ttl time.Duration) *QueryCache {
	t.Helper()
	c, err := NewQueryCache(16, ttl)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func TestQueryCacheSetGet(t *testing.T) {
	c := newCache(t, time.Minute)
	c.Set("community-post:1", "hello")

	v, ok := c.Get("community-post:1")
	if !ok || v.(string) != "hello" {
		t.Fatalf("get = %v, %v", v, ok)
	}
	if _, ok := c.Get("community-post:2"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestQueryCacheExpiry(t *testing.T) {
	c := newCache(t, time.Minute)
	c.SetTTL("k", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len = %d", c.Len())
	}
}

func TestQueryCacheInvalidatePrefix(t *testing.T) {
	c := newCache(t, time.Minute)
	c.Set("post-comments:a", 1)
	c.Set("post-comments:b", 2)
	c.Set("post-comment-count:a", 3)
	c.Set("community-posts", 4)
	c.Set("community-posts:general:1", 5)

	c.InvalidatePrefix("post-comments", "community-posts")

	for _, k := range []string{"post-comments:a", "post-comments:b", "community-posts", "community-posts:general:1"} {
		if _, ok := c.Get(k); ok {
			t.Fatalf("%s should be invalidated", k)
		}
	}
	if _, ok := c.Get("post-comment-count:a"); !ok {
		t.Fatal("post-comment-count:a should survive")
	}
}

func TestCachedLoadsOnce(t *testing.T) {
	c := newCache(t, time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := Cached(c, "answer", load)
		if err != nil || v != 42 {
			t.Fatalf("cached = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("load called %d times, want 1", calls)
	}
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	c := newCache(t, time.Minute)
	boom := errors.New("boom")
	if _, err := Cached(c, "k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("error result should not be cached")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *QueryCache
	c.Set("k", 1)
	c.InvalidatePrefix("k")
	v, err := Cached(c, "k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("cached on nil cache = %d, %v", v, err)
	}
}
