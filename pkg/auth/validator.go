package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// CallerValidator validates a caller_meta bearer token and extracts the
// AgentHandle and scopes bound to it.
type CallerValidator struct {
	KeySet KeySet
}

// NewCallerValidator builds a validator over the given key set.
func NewCallerValidator(keySet KeySet) *CallerValidator {
	return &CallerValidator{KeySet: keySet}
}

// Validate parses and verifies tokenString, returning its claims.
//
// It requires both a subject and an agent handle: a token that
// verifies cryptographically but carries no agent identity is still
// rejected, since the core has nothing opaque-but-stable to attach
// audit records to.
func (v *CallerValidator) Validate(tokenString string) (*CallerClaims, error) {
	if v.KeySet == nil {
		return nil, fmt.Errorf("auth: validator has no key set configured")
	}

	claims := &CallerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.KeySet.KeyFunc(),
		jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: token failed validation")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("auth: token missing subject claim")
	}
	if claims.AgentHandle == "" {
		return nil, fmt.Errorf("auth: token missing agent_handle claim")
	}
	return claims, nil
}
