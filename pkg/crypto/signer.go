// Package crypto provides the Ed25519 signing primitives used to bind
// Attestations to the key that produced them, and a small rotating
// keyring so old signatures keep verifying across key rotation.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Signer signs and verifies opaque byte strings (Attestation proof
// blobs, Verdict commitments) with Ed25519.
type Signer interface {
	Sign(data []byte) (sig []byte, keyID string, err error)
	Verify(data, sig []byte, keyID string) (bool, error)
	PublicKey(keyID string) (ed25519.PublicKey, bool)
	ActiveKeyID() string
}

// Ed25519Signer is the default in-process signer: one active key plus
// any number of retired keys kept only for verification.
type Ed25519Signer struct {
	active   string
	priv     map[string]ed25519.PrivateKey
	pub      map[string]ed25519.PublicKey
}

// NewEd25519Signer generates a fresh key pair under keyID and makes it active.
func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &Ed25519Signer{
		active: keyID,
		priv:   map[string]ed25519.PrivateKey{keyID: priv},
		pub:    map[string]ed25519.PublicKey{keyID: pub},
	}, nil
}

// Rotate generates a new active key, retiring the previous one for
// verification only.
func (s *Ed25519Signer) Rotate(newKeyID string) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("crypto: rotate: %w", err)
	}
	s.priv[newKeyID] = priv
	s.pub[newKeyID] = pub
	s.active = newKeyID
	return nil
}

func (s *Ed25519Signer) Sign(data []byte) ([]byte, string, error) {
	priv, ok := s.priv[s.active]
	if !ok {
		return nil, "", fmt.Errorf("crypto: no active key")
	}
	return ed25519.Sign(priv, data), s.active, nil
}

func (s *Ed25519Signer) Verify(data, sig []byte, keyID string) (bool, error) {
	pub, ok := s.pub[keyID]
	if !ok {
		return false, fmt.Errorf("crypto: unknown key id %q", keyID)
	}
	return ed25519.Verify(pub, data, sig), nil
}

func (s *Ed25519Signer) PublicKey(keyID string) (ed25519.PublicKey, bool) {
	pub, ok := s.pub[keyID]
	return pub, ok
}

func (s *Ed25519Signer) ActiveKeyID() string { return s.active }

// PublicKeyHex hex-encodes a public key for transport in logs/exports.
func PublicKeyHex(pub ed25519.PublicKey) string { return hex.EncodeToString(pub) }
