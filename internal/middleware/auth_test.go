package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/logoforge/logoforge/internal/supabase"
)

type verifierFunc func(ctx context.Context, token string) (*supabase.User, error)

func (f verifierFunc) VerifyToken(ctx context.Context, token string) (*supabase.User, error) {
	return f(ctx, token)
}

func okVerifier(id string) TokenVerifier {
	return verifierFunc(func(_ context.Context, token string) (*supabase.User, error) {
		if token == "good" {
			return &supabase.User{ID: id, Role: "authenticated"}, nil
		}
		return nil, fmt.Errorf("unknown token")
	})
}

func TestSessionGate_MissingHeader(t *testing.T) {
	gate := NewSessionGate(okVerifier("u1"), nil, nil)
	handler := gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/icons", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSessionGate_BadScheme(t *testing.T) {
	gate := NewSessionGate(okVerifier("u1"), nil, nil)
	handler := gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/icons", nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSessionGate_ValidToken(t *testing.T) {
	gate := NewSessionGate(okVerifier("u1"), nil, nil)

	var gotUser, gotToken string
	handler := gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUserID(r.Context())
		gotToken = GetToken(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/icons", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "u1" {
		t.Errorf("user id = %q, want u1", gotUser)
	}
	if gotToken != "good" {
		t.Errorf("token = %q, want good", gotToken)
	}
}

func TestSessionGate_InvalidToken(t *testing.T) {
	gate := NewSessionGate(okVerifier("u1"), nil, nil)
	handler := gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/icons", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSessionGate_SkipPaths(t *testing.T) {
	gate := NewSessionGate(okVerifier("u1"), nil, []string{"/healthz"})

	called := false
	handler := gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !called {
		t.Fatal("skip path should bypass authentication")
	}
}
