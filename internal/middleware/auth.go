// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/logoforge/logoforge/internal/errors"
	"github.com/logoforge/logoforge/internal/httputil"
	"github.com/logoforge/logoforge/internal/supabase"
	"github.com/logoforge/logoforge/pkg/logger"
)

// TokenVerifier resolves a bearer token to an authenticated user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*supabase.User, error)
}

type contextKey string

const (
	userContextKey  contextKey = "session_user"
	tokenContextKey contextKey = "session_token"
)

// SessionGate authenticates requests against the managed auth backend.
type SessionGate struct {
	verifier  TokenVerifier
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewSessionGate creates the session middleware. Paths in skipPaths bypass
// authentication entirely (health, metrics).
func NewSessionGate(verifier TokenVerifier, log *logger.Logger, skipPaths []string) *SessionGate {
	if log == nil {
		log = logger.NewDefault("session")
	}
	skip := make(map[string]bool)
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &SessionGate{verifier: verifier, log: log, skipPaths: skip}
}

// Handler returns the middleware handler. Requests without a valid session
// are rejected with 401 before reaching protected handlers.
func (g *SessionGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteServiceError(w, errors.Unauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			httputil.WriteServiceError(w, errors.Unauthorized("invalid Authorization header format"))
			return
		}
		token := parts[1]

		user, err := g.verifier.VerifyToken(r.Context(), token)
		if err != nil {
			g.log.WithError(err).WithField("path", r.URL.Path).Warn("token verification failed")
			httputil.WriteServiceError(w, errors.InvalidToken(err))
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser returns the authenticated user from context, or nil.
func GetUser(ctx context.Context) *supabase.User {
	user, ok := ctx.Value(userContextKey).(*supabase.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserID returns the authenticated user's ID, or "".
func GetUserID(ctx context.Context) string {
	user := GetUser(ctx)
	if user == nil {
		return ""
	}
	return user.ID
}

// GetToken returns the raw session token for downstream row-level-security
// scoped calls, or "".
func GetToken(ctx context.Context) string {
	token, ok := ctx.Value(tokenContextKey).(string)
	if !ok {
		return ""
	}
	return token
}

// WithUser injects a user and token into a context. Intended for tests.
func WithUser(ctx context.Context, user *supabase.User, token string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	if token != "" {
		ctx = context.WithValue(ctx, tokenContextKey, token)
	}
	return ctx
}
