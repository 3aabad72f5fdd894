package auth

import (
	"context"
	"errors"
)

type contextKey string

const callerKey contextKey = "caller"

// WithCaller attaches validated caller claims to the context.
func WithCaller(ctx context.Context, claims *CallerClaims) context.Context {
	return context.WithValue(ctx, callerKey, claims)
}

// GetCaller retrieves the caller claims attached by WithCaller.
func GetCaller(ctx context.Context) (*CallerClaims, error) {
	claims, ok := ctx.Value(callerKey).(*CallerClaims)
	if !ok {
		return nil, errors.New("no caller in context")
	}
	return claims, nil
}

// GetAgentHandle is a helper to get the AgentHandle from the context's caller claims.
func GetAgentHandle(ctx context.Context) (string, error) {
	claims, err := GetCaller(ctx)
	if err != nil {
		return "", err
	}
	return claims.AgentHandle, nil
}

// MustGetAgentHandle panics if the agent handle is missing (use only when
// middleware upstream guarantees it).
func MustGetAgentHandle(ctx context.Context) string {
	handle, err := GetAgentHandle(ctx)
	if err != nil {
		panic(err)
	}
	return handle
}
