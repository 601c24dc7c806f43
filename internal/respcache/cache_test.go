package respcache

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pitchlens/pitchlens/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResult(content string) *models.CompletionResult {
	return &models.CompletionResult{
		Content:    content,
		Model:      "gpt-4o-mini",
		TokensUsed: 100,
		Cost:       0.001,
	}
}

func TestCacheGetMissThenHit(t *testing.T) {
	cache := New(10, time.Minute, testLogger())

	if got := cache.Get("fp-1"); got != nil {
		t.Fatalf("expected miss on empty cache, got %+v", got)
	}

	cache.Set("fp-1", testResult("answer"))

	got := cache.Get("fp-1")
	if got == nil {
		t.Fatal("expected hit after Set, got miss")
	}
	if got.Content != "answer" {
		t.Errorf("expected cached content %q, got %q", "answer", got.Content)
	}
}

func TestCacheExpiredEntryCountsAsMiss(t *testing.T) {
	cache := New(10, time.Minute, testLogger())

	base := time.Now()
	cache.now = func() time.Time { return base }
	cache.Set("fp-1", testResult("answer"))

	cache.now = func() time.Time { return base.Add(time.Minute) }
	if got := cache.Get("fp-1"); got != nil {
		t.Fatalf("expected expired entry to miss, got %+v", got)
	}

	stats := cache.GetStats()
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Hits != 0 {
		t.Errorf("expected 0 hits, got %d", stats.Hits)
	}
	if cache.Len() != 0 {
		t.Errorf("expected expired entry removed on access, len = %d", cache.Len())
	}
}

func TestCacheSetTTLOverride(t *testing.T) {
	cache := New(10, time.Hour, testLogger())

	base := time.Now()
	cache.now = func() time.Time { return base }
	cache.Set("fp-short", testResult("short"), 10*time.Second)
	cache.Set("fp-long", testResult("long"))

	cache.now = func() time.Time { return base.Add(time.Minute) }
	if got := cache.Get("fp-short"); got != nil {
		t.Error("expected short-TTL entry to be expired")
	}
	if got := cache.Get("fp-long"); got == nil {
		t.Error("expected default-TTL entry to still be live")
	}
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	cache := New(3, time.Hour, testLogger())

	base := time.Now()
	for i := 0; i < 3; i++ {
		step := i
		cache.now = func() time.Time { return base.Add(time.Duration(step) * time.Second) }
		cache.Set(fmt.Sprintf("fp-%d", i), testResult(fmt.Sprintf("v%d", i)))
	}

	cache.now = func() time.Time { return base.Add(10 * time.Second) }
	cache.Set("fp-new", testResult("new"))

	if cache.Len() != 3 {
		t.Fatalf("expected cache to stay at capacity 3, len = %d", cache.Len())
	}
	if got := cache.Get("fp-0"); got != nil {
		t.Error("expected oldest entry fp-0 to be evicted")
	}
	if got := cache.Get("fp-new"); got == nil {
		t.Error("expected newly inserted entry to be present")
	}
	if got := cache.Get("fp-2"); got == nil {
		t.Error("expected newer entry fp-2 to survive eviction")
	}
}

func TestCacheOverwriteDoesNotEvict(t *testing.T) {
	cache := New(2, time.Hour, testLogger())

	cache.Set("fp-a", testResult("a"))
	cache.Set("fp-b", testResult("b"))
	cache.Set("fp-a", testResult("a2"))

	if cache.Len() != 2 {
		t.Fatalf("expected len 2 after overwrite, got %d", cache.Len())
	}
	if got := cache.Get("fp-b"); got == nil {
		t.Error("expected fp-b to survive an overwrite of fp-a")
	}
	if got := cache.Get("fp-a"); got == nil || got.Content != "a2" {
		t.Errorf("expected fp-a to hold overwritten value, got %+v", got)
	}
}

func TestCacheHitRate(t *testing.T) {
	cache := New(10, time.Hour, testLogger())

	stats := cache.GetStats()
	if stats.HitRate != 0 {
		t.Errorf("expected hit rate 0 with no requests, got %f", stats.HitRate)
	}

	cache.Set("fp-1", testResult("v"))
	cache.Get("fp-1")
	cache.Get("fp-1")
	cache.Get("fp-1")
	cache.Get("fp-missing")

	stats = cache.GetStats()
	if stats.Hits != 3 {
		t.Errorf("expected 3 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.HitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %f", stats.HitRate)
	}
}

func TestCacheSweep(t *testing.T) {
	cache := New(10, time.Minute, testLogger())

	base := time.Now()
	cache.now = func() time.Time { return base }
	cache.Set("fp-old-1", testResult("v"))
	cache.Set("fp-old-2", testResult("v"))

	cache.now = func() time.Time { return base.Add(2 * time.Minute) }
	cache.Set("fp-fresh", testResult("v"))

	removed := cache.Sweep()
	if removed != 2 {
		t.Errorf("expected sweep to remove 2 entries, got %d", removed)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry after sweep, got %d", cache.Len())
	}

	stats := cache.GetStats()
	if stats.Misses != 0 {
		t.Errorf("expected sweep not to count misses, got %d", stats.Misses)
	}
}

func TestCacheClearResetsCounters(t *testing.T) {
	cache := New(10, time.Hour, testLogger())

	cache.Set("fp-1", testResult("v"))
	cache.Get("fp-1")
	cache.Get("fp-missing")

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("expected empty cache after clear, len = %d", cache.Len())
	}
	stats := cache.GetStats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.HitRate != 0 {
		t.Errorf("expected counters reset after clear, got %+v", stats)
	}
}
