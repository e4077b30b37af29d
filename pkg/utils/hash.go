package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashRequest creates a SHA256 hash of a date and a normalized title.
// This is useful for creating consistent, safe keys for Redis.
func HashRequest(date, normalizedTitle string) string {
	h := sha256.New()
	h.Write([]byte(date))
	h.Write([]byte{0})
	h.Write([]byte(normalizedTitle))
	return hex.EncodeToString(h.Sum(nil))
}
