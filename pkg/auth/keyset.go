package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeySet manages the active signing key plus enough retired keys to
// verify tokens issued before the last rotation.
type KeySet interface {
	// Sign creates a signed token with the current active key.
	Sign(ctx context.Context, claims jwt.Claims) (string, error)
	// KeyFunc returns the key lookup used to verify a token by its kid header.
	KeyFunc() jwt.Keyfunc
}

const maxRetiredKeys = 10

// InMemoryKeySet holds Ed25519 keys in memory with kid-based rotation.
// It is the only KeySet implementation needed for a single-process
// deployment; a multi-replica deployment would back this with a shared
// store, which is out of scope here.
type InMemoryKeySet struct {
	mu         sync.RWMutex
	currentKID string
	keys       map[string]ed25519.PrivateKey
}

// NewInMemoryKeySet builds a KeySet with one freshly generated key.
func NewInMemoryKeySet() (*InMemoryKeySet, error) {
	ks := &InMemoryKeySet{keys: make(map[string]ed25519.PrivateKey)}
	if err := ks.Rotate(); err != nil {
		return nil, err
	}
	return ks, nil
}

// Rotate generates a new signing key and makes it current, retiring the
// oldest key once more than maxRetiredKeys are held.
func (ks *InMemoryKeySet) Rotate() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate signing key: %w", err)
	}

	kid := fmt.Sprintf("key-%d", time.Now().UnixNano())
	ks.keys[kid] = priv
	ks.currentKID = kid

	if len(ks.keys) > maxRetiredKeys {
		// Key IDs embed a fixed-width nanosecond timestamp, so the
		// lexically smallest one is the oldest.
		oldest := ""
		for k := range ks.keys {
			if k != kid && (oldest == "" || k < oldest) {
				oldest = k
			}
		}
		delete(ks.keys, oldest)
	}
	return nil
}

func (ks *InMemoryKeySet) Sign(_ context.Context, claims jwt.Claims) (string, error) {
	ks.mu.RLock()
	kid := ks.currentKID
	key := ks.keys[kid]
	ks.mu.RUnlock()

	if key == nil {
		return "", fmt.Errorf("auth: no active signing key")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = kid
	return token.SignedString(key)
}

func (ks *InMemoryKeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("auth: token header missing kid")
		}

		ks.mu.RLock()
		defer ks.mu.RUnlock()
		key, ok := ks.keys[kid]
		if !ok {
			return nil, fmt.Errorf("auth: unknown signing key %q", kid)
		}
		return key.Public(), nil
	}
}
