package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey derives a stable cache key from the given parts. Parts are
// joined with a separator before hashing so ("ab", "c") and ("a", "bc")
// never collide.
func HashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
