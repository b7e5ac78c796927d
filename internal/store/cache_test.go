package store

import (
	"testing"
	"time"

	"github.com/clearterms/clearterms-backend/internal/report"
)

func TestMultilingualMergeKeepsOneEntry(t *testing.T) {
	c := NewReportCache(10)

	c.Put("k1", "fr", report.Report{"site_name": "Ex"}, "example.com", "en")
	c.Put("k1", "en", report.Report{"site_name": "Ex"}, "example.com", "en")

	if c.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", c.Len())
	}
	if _, ok, _ := c.GetReport("k1", "fr"); !ok {
		t.Fatalf("fr report missing after merge")
	}
	if _, ok, _ := c.GetReport("k1", "en"); !ok {
		t.Fatalf("en report missing after merge")
	}
}

func TestGetReportLanguageMissListsAvailable(t *testing.T) {
	c := NewReportCache(10)
	c.Put("k1", "fr", report.Report{}, "example.com", "fr")

	_, ok, available := c.GetReport("k1", "en")
	if ok {
		t.Fatalf("expected language miss")
	}
	if len(available) != 1 || available[0] != "fr" {
		t.Fatalf("expected available=[fr], got %v", available)
	}

	if _, ok, available := c.GetReport("missing", "fr"); ok || available != nil {
		t.Fatalf("unknown key should report nothing available")
	}
}

func TestLRUEvictionDropsLeastRecentlyAccessed(t *testing.T) {
	c := NewReportCache(3)
	base := time.Now()
	current := base
	c.now = func() time.Time { return current }

	c.Put("k1", "en", report.Report{}, "a.com", "en")
	current = current.Add(time.Second)
	c.Put("k2", "en", report.Report{}, "b.com", "en")
	current = current.Add(time.Second)
	c.Put("k3", "en", report.Report{}, "c.com", "en")

	// Touch k1 and k3 so k2 becomes the LRU victim.
	current = current.Add(time.Second)
	c.GetReport("k1", "en")
	current = current.Add(time.Second)
	c.GetReport("k3", "en")

	current = current.Add(time.Second)
	c.Put("k4", "en", report.Report{}, "d.com", "en")

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", c.Len())
	}
	if _, ok, _ := c.GetReport("k2", "en"); ok {
		t.Fatalf("k2 should have been evicted")
	}
	for _, key := range []string{"k1", "k3", "k4"} {
		if _, ok, _ := c.GetReport(key, "en"); !ok {
			t.Fatalf("%s should have survived eviction", key)
		}
	}
}

func TestLanguageMergeDoesNotEvict(t *testing.T) {
	c := NewReportCache(2)
	c.Put("k1", "en", report.Report{}, "a.com", "en")
	c.Put("k2", "en", report.Report{}, "b.com", "en")

	// Merging a new language into an existing key is not an insertion.
	c.Put("k1", "fr", report.Report{}, "a.com", "en")
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
}

func TestTTLExpiryIgnoresRecentAccess(t *testing.T) {
	c := NewReportCache(10)
	base := time.Now()
	current := base
	c.now = func() time.Time { return current }

	c.Put("k1", "en", report.Report{}, "a.com", "en")

	// Access right before the sweep: CreatedAt is never refreshed, so the
	// entry still ages out.
	current = base.Add(25 * time.Hour)
	c.GetReport("k1", "en")

	if n := c.DeleteOlderThan(24 * time.Hour); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}
	if _, ok, _ := c.GetReport("k1", "en"); ok {
		t.Fatalf("expired entry still present")
	}
}

func TestLanguageMergeDoesNotRefreshCreatedAt(t *testing.T) {
	c := NewReportCache(10)
	base := time.Now()
	current := base
	c.now = func() time.Time { return current }

	c.Put("k1", "fr", report.Report{}, "a.com", "fr")
	current = base.Add(23 * time.Hour)
	c.Put("k1", "en", report.Report{}, "a.com", "fr")

	current = base.Add(25 * time.Hour)
	if n := c.DeleteOlderThan(24 * time.Hour); n != 1 {
		t.Fatalf("entry clock starts at first insertion; expected expiry, got %d", n)
	}
}

func TestURLAliasResolvesToContentEntry(t *testing.T) {
	c := NewReportCache(10)
	c.Put("contentkey", "en", report.Report{"site_name": "Ex"}, "example.com", "en")
	c.AddURLAlias("urlhash", "contentkey")

	key, ok := c.Resolve("urlhash")
	if !ok || key != "contentkey" {
		t.Fatalf("alias did not resolve, got %q ok=%v", key, ok)
	}
	if _, ok := c.Resolve("contentkey"); !ok {
		t.Fatalf("direct key should resolve to itself")
	}
	if _, ok := c.Resolve("nope"); ok {
		t.Fatalf("unknown key should not resolve")
	}

	// Aliases never precede their entry.
	c.AddURLAlias("dangling", "missing-key")
	if _, ok := c.Resolve("dangling"); ok {
		t.Fatalf("alias to a missing entry should not resolve")
	}
}

func TestExpirySweepDropsAliases(t *testing.T) {
	c := NewReportCache(10)
	base := time.Now()
	current := base
	c.now = func() time.Time { return current }

	c.Put("k1", "en", report.Report{}, "a.com", "en")
	c.AddURLAlias("alias1", "k1")

	current = base.Add(25 * time.Hour)
	c.DeleteOlderThan(24 * time.Hour)

	if _, ok := c.Resolve("alias1"); ok {
		t.Fatalf("alias should die with its entry")
	}
}
