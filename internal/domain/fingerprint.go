package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint is the deterministic identity token for a search, used as the
// cache key. It is a hex-encoded SHA-256 digest, so 64 characters.
type Fingerprint string

// ComputeFingerprint derives the identity token for a set of query attributes.
//
// The digest is taken over a canonical sorted-key JSON encoding of the
// normalized fields, so the token is independent of field ordering in code and
// insensitive to letter case and surrounding whitespace in the input.
func ComputeFingerprint(attrs QueryAttributes) Fingerprint {
	n := attrs.Normalized()

	// encoding/json writes map keys in sorted order, which gives us the
	// canonical serialization for free.
	canonical, _ := json.Marshal(map[string]string{
		"first_name": n.FirstName,
		"last_name":  n.LastName,
		"street":     n.Street,
		"city":       n.City,
		"state":      n.State,
		"zip_code":   n.Zip,
	})

	sum := sha256.Sum256(canonical)
	return Fingerprint(hex.EncodeToString(sum[:]))
}
