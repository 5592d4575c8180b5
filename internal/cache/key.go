package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives a namespaced cache key from a canonical request encoding.
func Key(prefix string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return prefix + hex.EncodeToString(sum[:])
}
