package cache

import (
	"testing"
	"time"
)

func TestCacheLookupStoreInvalidate(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Lookup("missing"); ok {
		t.Error("Lookup on empty cache returned a hit")
	}

	c.Store("k", "v")
	if got, ok := c.Lookup("k"); !ok || got != "v" {
		t.Errorf("Lookup(k) = %v, %v; want v, true", got, ok)
	}

	c.Invalidate("k")
	if _, ok := c.Lookup("k"); ok {
		t.Error("Lookup after Invalidate returned a hit")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Store("k", "v")
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Lookup("k"); ok {
		t.Error("Lookup returned an expired entry")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := New(time.Minute)

	c.Store("k", "old")
	c.Store("k", "new")
	if got, _ := c.Lookup("k"); got != "new" {
		t.Errorf("Lookup(k) = %v; want new", got)
	}
}
