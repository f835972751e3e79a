package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("https://example.com/contact")
	b := Key("https://example.com/contact")
	if a != b {
		t.Errorf("Expected identical keys, got %q vs %q", a, b)
	}
	if a == Key("https://example.com/about") {
		t.Error("Expected different URLs to produce different keys")
	}
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("body"), time.Minute); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	val, found := c.Get("k")
	if !found || !bytes.Equal(val, []byte("body")) {
		t.Errorf("Expected cached body, got %q (found=%v)", val, found)
	}

	_, found = c.Get("missing")
	if found {
		t.Error("Expected miss for unknown key")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	if err := c.Set("page", []byte("<html></html>"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	val, found := c.Get("page")
	if !found || string(val) != "<html></html>" {
		t.Errorf("Expected cached body, got %q (found=%v)", val, found)
	}

	// Expired entries are dropped on read.
	if err := c.Set("old", []byte("x"), -time.Minute); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, found := c.Get("old"); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Minute)

	if err := c.disk.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Fatalf("Expected disk hit, got %q (found=%v)", val, found)
	}

	if _, found := c.memory.Get("k"); !found {
		t.Error("Expected disk hit promoted to memory")
	}
}
