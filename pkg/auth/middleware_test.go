package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/trustwrapper/core/pkg/auth"
)

func createTestToken(t *testing.T, ks auth.KeySet, claims *auth.CallerClaims) string {
	t.Helper()
	token, err := ks.Sign(context.Background(), claims)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestKeySet(t *testing.T) *auth.InMemoryKeySet {
	t.Helper()
	ks, err := auth.NewInMemoryKeySet()
	if err != nil {
		t.Fatalf("new key set: %v", err)
	}
	return ks
}

func TestMiddleware_ValidJWT(t *testing.T) {
	ks := newTestKeySet(t)
	validator := auth.NewCallerValidator(ks)
	middleware := auth.NewMiddleware(validator)

	claims := &auth.CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		AgentHandle: "agent-7",
		Scopes:      []string{"verify"},
	}
	tokenStr := createTestToken(t, ks, claims)

	var gotHandle string
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := auth.GetCaller(r.Context())
		if err != nil {
			t.Fatalf("expected caller in context: %v", err)
		}
		gotHandle = c.AgentHandle
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotHandle != "agent-7" {
		t.Errorf("expected agent handle agent-7, got %q", gotHandle)
	}
}

func TestMiddleware_ExpiredJWT(t *testing.T) {
	ks := newTestKeySet(t)
	validator := auth.NewCallerValidator(ks)
	middleware := auth.NewMiddleware(validator)

	claims := &auth.CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		AgentHandle: "agent-7",
	}
	tokenStr := createTestToken(t, ks, claims)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	ks := newTestKeySet(t)
	validator := auth.NewCallerValidator(ks)
	middleware := auth.NewMiddleware(validator)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/verify", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_InvalidSignature(t *testing.T) {
	ks := newTestKeySet(t)
	otherKS := newTestKeySet(t)
	validator := auth.NewCallerValidator(ks)
	middleware := auth.NewMiddleware(validator)

	claims := &auth.CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		AgentHandle: "agent-7",
	}
	tokenStr := createTestToken(t, otherKS, claims)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_PublicPathsBypass(t *testing.T) {
	middleware := auth.NewMiddleware(nil)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected public path to bypass auth, got %d", w.Code)
	}
}

func TestMiddleware_NilValidator_FailClosed(t *testing.T) {
	middleware := auth.NewMiddleware(nil)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/verify", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with nil validator, got %d", w.Code)
	}
}

func TestMiddleware_MissingAgentHandleClaim(t *testing.T) {
	ks := newTestKeySet(t)
	validator := auth.NewCallerValidator(ks)
	middleware := auth.NewMiddleware(validator)

	claims := &auth.CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tokenStr := createTestToken(t, ks, claims)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_MissingSubjectClaim(t *testing.T) {
	ks := newTestKeySet(t)
	validator := auth.NewCallerValidator(ks)
	middleware := auth.NewMiddleware(validator)

	claims := &auth.CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		AgentHandle: "agent-7",
	}
	tokenStr := createTestToken(t, ks, claims)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRequireScope_RejectsMissingScope(t *testing.T) {
	ks := newTestKeySet(t)
	validator := auth.NewCallerValidator(ks)
	chain := func(h http.Handler) http.Handler {
		return auth.NewMiddleware(validator)(auth.RequireScope("audit:read")(h))
	}

	claims := &auth.CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		AgentHandle: "agent-7",
		Scopes:      []string{"verify"},
	}
	tokenStr := createTestToken(t, ks, claims)

	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/audit", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestGetRequestID_ExtractsFromContext(t *testing.T) {
	handler := auth.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.GetRequestID(r.Context())
		if id == "" {
			t.Error("expected request id in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/verify", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}
