// Package digest provides SHA-256 key hashing for cache object names.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key hashes the parts into a hex digest usable as a filename. Parts are
// separated by NUL so ("a", "bc") and ("ab", "c") never collide.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0}) //nolint:errcheck
		}
		h.Write([]byte(p)) //nolint:errcheck
	}
	return hex.EncodeToString(h.Sum(nil))
}
