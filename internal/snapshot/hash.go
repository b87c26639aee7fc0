package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"quire/internal/doc"
)

// Domain prefix for content-addressed snapshot identity. The version
// suffix leaves room for a future canonicalization change.
const hashDomain = "quire/snapshot/v1"

// ContentHash computes the content address of a document export:
// SHA-256 over the domain prefix, a null separator, and the canonical
// JSON. The null byte prevents domain/data boundary ambiguity. Two
// exports with the same canonical form share one hash regardless of
// when they were captured.
func ContentHash(export doc.Export) (string, error) {
	canonical, err := MarshalCanonical(export)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
