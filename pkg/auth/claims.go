package auth

import "github.com/golang-jwt/jwt/v5"

// CallerClaims is the JWT payload a caller_meta bearer token carries.
// The core never manages user identity; it only needs an opaque,
// stable agent identifier and the scopes that identifier was granted.
type CallerClaims struct {
	jwt.RegisteredClaims

	// AgentHandle is the opaque agent identifier bound to this token.
	// It becomes the AgentHandle attached to every audit record and
	// span produced for the call.
	AgentHandle string `json:"agent_handle"`

	// Scopes lists the operations this agent is permitted to invoke,
	// e.g. "verify", "verify:batch", "audit:read".
	Scopes []string `json:"scopes,omitempty"`

	// DelegatorID is set when this token was minted on behalf of
	// another agent (a supervising agent delegating to a sub-agent).
	DelegatorID string `json:"delegator_id,omitempty"`
}

// HasScope reports whether the claims grant the given scope.
func (c CallerClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
