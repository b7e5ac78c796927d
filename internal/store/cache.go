package store

import (
	"sort"
	"sync"
	"time"

	"github.com/clearterms/clearterms-backend/internal/report"
)

// CacheEntry bundles every generated report for one piece of content, keyed
// by output language. Adding a language mutates the entry in place; there is
// never more than one entry per content key.
type CacheEntry struct {
	Key              string
	Domain           string
	DetectedLanguage string
	Reports          map[string]report.Report
	// CreatedAt drives TTL expiry. It is set at first insertion and never
	// refreshed, so even a hot entry ages out once the source document may
	// have changed.
	CreatedAt time.Time
	// LastAccessedAt drives LRU ordering and is refreshed on every read
	// and write.
	LastAccessedAt time.Time
}

// ReportCache is an in-memory cache bounded two ways: a maximum entry count
// enforced by LRU eviction at insertion, and a TTL sweep driven by the
// periodic reaper.
type ReportCache struct {
	mu         sync.Mutex
	entries    map[string]*CacheEntry
	aliases    map[string]string // URL hash -> content key
	maxEntries int
	now        func() time.Time
}

func NewReportCache(maxEntries int) *ReportCache {
	return &ReportCache{
		entries:    make(map[string]*CacheEntry),
		aliases:    make(map[string]string),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Resolve maps a key or URL alias onto the canonical content key. It reports
// false when neither an entry nor an alias exists.
func (c *ReportCache) Resolve(keyOrAlias string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[keyOrAlias]; ok {
		return keyOrAlias, true
	}
	if key, ok := c.aliases[keyOrAlias]; ok {
		if _, live := c.entries[key]; live {
			return key, true
		}
	}
	return "", false
}

// GetReport returns the cached report for key+lang. On a language miss it
// returns the languages that are available so the caller can decide whether
// to request regeneration. Any access to a live entry refreshes its LRU
// position.
func (c *ReportCache) GetReport(key, lang string) (report.Report, bool, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry.LastAccessedAt = c.now()
	if r, ok := entry.Reports[lang]; ok {
		return r, true, nil
	}
	langs := make([]string, 0, len(entry.Reports))
	for l := range entry.Reports {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return nil, false, langs
}

// Put merges a report for one language into the entry for key, creating the
// entry on first insertion. The language slot is last-write-wins: two jobs
// racing on the same key+lang both succeed and the later write stands.
func (c *ReportCache) Put(key, lang string, r report.Report, domain, detectedLanguage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	if entry, ok := c.entries[key]; ok {
		entry.Reports[lang] = r
		entry.LastAccessedAt = now
		return
	}

	c.evictLRU()
	c.entries[key] = &CacheEntry{
		Key:              key,
		Domain:           domain,
		DetectedLanguage: detectedLanguage,
		Reports:          map[string]report.Report{lang: r},
		CreatedAt:        now,
		LastAccessedAt:   now,
	}
}

// AddURLAlias lets /report lookups by normalized-URL hash land on the
// content-keyed entry. Aliases are only ever written after the content entry
// exists, so they cannot produce a false hit.
func (c *ReportCache) AddURLAlias(urlHash, key string) {
	if urlHash == "" || urlHash == key {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.aliases[urlHash] = key
	}
}

func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// DeleteOlderThan removes entries whose CreatedAt exceeds maxAge, even if
// they were accessed moments ago, and returns how many were removed.
func (c *ReportCache) DeleteOlderThan(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-maxAge)
	removed := 0
	for key, entry := range c.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.dropDeadAliases()
	}
	return removed
}

// evictLRU makes room for one new entry: while the cache is at or above the
// limit, the least-recently-accessed entry goes. Caller holds the lock.
func (c *ReportCache) evictLRU() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.entries) >= c.maxEntries {
		var victim *CacheEntry
		for _, entry := range c.entries {
			if victim == nil || entry.LastAccessedAt.Before(victim.LastAccessedAt) {
				victim = entry
			}
		}
		if victim == nil {
			return
		}
		delete(c.entries, victim.Key)
	}
	c.dropDeadAliases()
}

func (c *ReportCache) dropDeadAliases() {
	for alias, key := range c.aliases {
		if _, ok := c.entries[key]; !ok {
			delete(c.aliases, alias)
		}
	}
}
