package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashPixels hashes decoded image content together with its dimensions, so
// two encodings of the same pixels share cache entries.
func HashPixels(width, height int, pix []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%dx%d:", width, height)
	h.Write(pix)
	return hex.EncodeToString(h.Sum(nil))
}
