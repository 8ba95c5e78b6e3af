// Package contenthash computes the digests used as document and chunk identity.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the lower-case hex SHA-256 of b.
func Sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// SumString returns the lower-case hex SHA-256 of s.
func SumString(s string) string {
	return Sum([]byte(s))
}
