// Package textproc derives deterministic cache keys from submitted page text
// and source URLs. Keys are stable across process restarts: same cleaned
// content or same normalized URL always hashes to the same hex digest.
package textproc

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Query parameters that change which legal document a page serves. Everything
// else (tracking params, fragments) is noise and is dropped before hashing.
var keptQueryParams = []string{"country", "lang", "region", "locale"}

// CleanText collapses every whitespace run to a single space and trims.
// The extension's content script performs the same normalization before
// hashing on its side; the two must stay byte-for-byte identical or cache
// lookups silently miss.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ContentHash returns the cache key for a piece of submitted content:
// SHA-256 hex of the cleaned text.
func ContentHash(content string) string {
	return hashHex(CleanText(content))
}

// URLHash returns the SHA-256 hex digest of a normalized URL: lowercase
// scheme + host + path with the trailing slash stripped (except for the
// root path), plus any allow-listed query parameters sorted and appended.
// A URL that cannot be parsed is hashed as its raw lowercased string.
func URLHash(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return hashHex(strings.ToLower(raw))
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	normalized := u.Scheme + "://" + u.Hostname() + path
	if strings.HasSuffix(normalized, "/") && path != "/" {
		normalized = strings.TrimSuffix(normalized, "/")
	}

	query := u.Query()
	var kept []string
	for _, name := range keptQueryParams {
		if query.Has(name) {
			kept = append(kept, name+"="+query.Get(name))
		}
	}
	if len(kept) > 0 {
		sort.Strings(kept)
		normalized += "?" + strings.Join(kept, "&")
	}

	return hashHex(strings.ToLower(normalized))
}

// Domain extracts the hostname from a source URL, or "unknown" when the URL
// is absent or malformed.
func Domain(raw string) string {
	if raw == "" || raw == "unknown" {
		return "unknown"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
