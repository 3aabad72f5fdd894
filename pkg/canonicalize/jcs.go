// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// serialization for deterministic hashing of TrustWrapper artifacts:
// Decision fingerprints, Verdict commitments and Attestation public
// inputs must all agree bit-for-bit across independent implementations
// so canonicalisation is centralized here rather than left to each
// package's own json.Marshal call.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JCS returns the RFC 8785 canonical JSON encoding of v: marshal with the
// standard encoder first (so struct tags are respected), then re-order
// and re-escape per JCS via gowebpki/jcs.
func JCS(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: marshal: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: jcs transform: %w", err)
	}
	return canon, nil
}

// Hash returns the SHA-256 digest of the JCS-canonical encoding of v.
func Hash(v any) ([32]byte, error) {
	b, err := JCS(v)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// HashHex is Hash rendered as a lowercase hex string, used for
// human-facing identifiers (audit record IDs, log fields).
func HashHex(v any) (string, error) {
	h, err := Hash(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}
