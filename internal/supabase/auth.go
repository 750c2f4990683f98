package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/logoforge/logoforge/internal/httputil"
)

// User represents an authenticated Supabase user.
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	Aud          string                 `json:"aud"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	LastSignInAt time.Time              `json:"last_sign_in_at,omitempty"`
}

// VerifyToken validates a session token. Local HS256 verification with the
// project JWT secret is preferred; when no secret is configured or local
// verification fails, the auth REST API is consulted.
func (c *Client) VerifyToken(ctx context.Context, token string) (*User, error) {
	if c.cfg.JWTSecret != "" {
		if user, err := c.verifyLocal(token); err == nil {
			return user, nil
		}
	}
	return c.fetchUser(ctx, token)
}

// verifyLocal checks the JWT signature against the project secret.
func (c *Client) verifyLocal(token string) (*User, error) {
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(c.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("jwt invalid")
	}

	user := &User{
		ID:           stringClaim(claims, "sub"),
		Email:        stringClaim(claims, "email"),
		Role:         stringClaim(claims, "role"),
		Aud:          stringClaim(claims, "aud"),
		AppMetadata:  mapClaim(claims, "app_metadata"),
		UserMetadata: mapClaim(claims, "user_metadata"),
	}
	if user.ID == "" {
		return nil, fmt.Errorf("token carries no subject")
	}
	user.CreatedAt = timeClaim(claims, "iat")
	return user, nil
}

// fetchUser resolves the token against the Supabase auth REST API.
func (c *Client) fetchUser(ctx context.Context, token string) (*User, error) {
	resp, err := c.auth.Get(ctx, "/user", map[string]string{"Authorization": "Bearer " + token})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	var user User
	if err := httputil.DecodeResponse(resp, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("auth response carries no user id")
	}
	return &user, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func mapClaim(claims jwt.MapClaims, key string) map[string]interface{} {
	if val, ok := claims[key]; ok {
		if m, ok := val.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

func timeClaim(claims jwt.MapClaims, key string) time.Time {
	val, ok := claims[key]
	if !ok {
		return time.Time{}
	}
	switch v := val.(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0)
		}
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
