package service

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the hex SHA-256 digest of the submitted bytes.
// Deterministic and content-type agnostic: the same bytes hash identically
// whether they arrived as text or as an image. Used to fingerprint
// submissions for storage and audit; identical hashes do not short-circuit
// analysis.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
