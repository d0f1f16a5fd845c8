package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// GenerateCacheKey derives a key from everything that changes the synthesized
// duration. Params are sorted by name so map order does not matter.
func GenerateCacheKey(text, vendor, voice string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s", vendor, voice, text)
	for _, k := range names {
		fmt.Fprintf(&b, "|%s=%v", k, params[k])
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:16]) // Use first 16 bytes for shorter keys
}
