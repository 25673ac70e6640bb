package cache

import (
	"bytes"
	"io"
	"testing"
	"time"

	attriberrors "attrib/internal/errors"
	"attrib/internal/logging"
	"attrib/internal/store"
)

func testCache(t *testing.T, threshold int) *Cache {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Output: io.Discard, Level: logging.ErrorLevel})

	db, err := store.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	c, err := New(db, logger, threshold)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := testCache(t, 0)

	payload := []byte(`{"items":[1,2,3]}`)
	if err := c.Set("scan:a", payload, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get("scan:a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Get() = %s, want %s", got, payload)
	}
}

func TestCacheMiss(t *testing.T) {
	c := testCache(t, 0)

	_, ok, err := c.Get("nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheCompression(t *testing.T) {
	c := testCache(t, 0)

	// Above the 50KB default threshold and highly compressible
	payload := bytes.Repeat([]byte("contact button "), 5000)
	if err := c.Set("big", payload, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, err := c.Inspect("big")
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if entry == nil || !entry.Compressed {
		t.Fatal("large payload should be stored compressed")
	}

	got, ok, err := c.Get("big")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("decompressed payload does not match original")
	}
}

func TestCacheSmallPayloadNotCompressed(t *testing.T) {
	c := testCache(t, 0)

	if err := c.Set("small", []byte("tiny"), time.Hour); err != nil {
		t.Fatal(err)
	}
	entry, err := c.Inspect("small")
	if err != nil || entry == nil {
		t.Fatalf("Inspect() = %v, %v", entry, err)
	}
	if entry.Compressed {
		t.Error("small payload should not be compressed")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := testCache(t, 0)

	t.Run("zero ttl is born expired", func(t *testing.T) {
		if err := c.Set("dead", []byte("x"), 0); err != nil {
			t.Fatal(err)
		}
		if _, ok, _ := c.Get("dead"); ok {
			t.Error("entry with ttl 0 should never be readable")
		}
	})

	t.Run("expired entry deleted on read", func(t *testing.T) {
		if err := c.Set("gone", []byte("x"), -time.Second); err != nil {
			t.Fatal(err)
		}
		if _, ok, _ := c.Get("gone"); ok {
			t.Fatal("expected miss")
		}
		entry, err := c.Inspect("gone")
		if err != nil {
			t.Fatal(err)
		}
		if entry != nil {
			t.Error("expired entry should be deleted on read")
		}
	})
}

func TestCacheHitCount(t *testing.T) {
	c := testCache(t, 0)

	if err := c.Set("hot", []byte("x"), time.Hour); err != nil {
		t.Fatal(err)
	}

	before, err := c.Inspect("hot")
	if err != nil || before == nil {
		t.Fatalf("Inspect() = %v, %v", before, err)
	}

	for i := 0; i < 3; i++ {
		if _, ok, _ := c.Get("hot"); !ok {
			t.Fatal("expected hit")
		}
	}

	after, err := c.Inspect("hot")
	if err != nil || after == nil {
		t.Fatalf("Inspect() = %v, %v", after, err)
	}
	if after.HitCount != 3 {
		t.Errorf("hit count = %d, want 3", after.HitCount)
	}
	if !after.ExpiresAt.Equal(before.ExpiresAt) {
		t.Error("reads must not extend expiry")
	}
}

func TestCacheSweep(t *testing.T) {
	c := testCache(t, 0)

	if err := c.Set("live", []byte("x"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("dead1", []byte("x"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("dead2", []byte("x"), -time.Minute); err != nil {
		t.Fatal(err)
	}

	removed, err := c.Sweep()
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Sweep() removed %d, want 2", removed)
	}

	if _, ok, _ := c.Get("live"); !ok {
		t.Error("live entry should survive sweep")
	}
}

func TestCacheStats(t *testing.T) {
	c := testCache(t, 0)

	if err := c.Set("a", []byte("x"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get("a"); !ok {
		t.Fatal("expected hit")
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats["entries"] != 1 {
		t.Errorf("entries = %v, want 1", stats["entries"])
	}
	if stats["total_hits"] != 1 {
		t.Errorf("total_hits = %v, want 1", stats["total_hits"])
	}
}

func TestCacheFailuresCarryCode(t *testing.T) {
	logger := logging.NewLogger(logging.Config{Output: io.Discard, Level: logging.ErrorLevel})

	db, err := store.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	c, err := New(db, logger, 0)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	// Every operation against a closed database surfaces CACHE_FAILED
	_ = db.Close()

	if err := c.Set("k", []byte("v"), time.Hour); !attriberrors.IsCode(err, attriberrors.CacheFailed) {
		t.Errorf("Set() error = %v, want CACHE_FAILED", err)
	}
	if _, _, err := c.Get("k"); !attriberrors.IsCode(err, attriberrors.CacheFailed) {
		t.Errorf("Get() error = %v, want CACHE_FAILED", err)
	}
	if _, err := c.Sweep(); !attriberrors.IsCode(err, attriberrors.CacheFailed) {
		t.Errorf("Sweep() error = %v, want CACHE_FAILED", err)
	}
	if _, err := c.Stats(); !attriberrors.IsCode(err, attriberrors.CacheFailed) {
		t.Errorf("Stats() error = %v, want CACHE_FAILED", err)
	}
}
