package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint returns a deterministic cache key for the given filter set:
// prefix + ":" + hash(canonical(filters)). Canonicalization sorts the keys,
// so two maps with the same entries in any order produce the same key.
// Empty values are kept: {"status": ""} and {} are different filter sets.
func Fingerprint(prefix string, filters map[string]string) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(filters[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}
