// Package sha256 digests fetched documents so archived copies and records can
// be matched.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements collector.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Short returns the first n hex characters of a digest, for file names.
func Short(digest string, n int) string {
	if n <= 0 || n >= len(digest) {
		return digest
	}
	return digest[:n]
}
