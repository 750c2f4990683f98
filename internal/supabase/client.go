// Package supabase provides a thin client for the managed Supabase backend:
// PostgREST table access, RPC calls, and auth token verification.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/logoforge/logoforge/internal/httputil"
)

// Config configures the Supabase client.
type Config struct {
	ProjectURL string
	AnonKey    string
	ServiceKey string
	JWTSecret  string
	Timeout    time.Duration
}

// Client performs Supabase REST and auth calls. Table access runs under the
// service key by default; passing a user token scopes the call to that user's
// row-level-security context instead.
type Client struct {
	cfg  Config
	rest *httputil.Client
	auth *httputil.Client
}

// New creates a Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.AnonKey == "" && cfg.ServiceKey == "" {
		return nil, fmt.Errorf("anon key or service key is required")
	}
	base := strings.TrimRight(cfg.ProjectURL, "/")

	key := cfg.ServiceKey
	if key == "" {
		key = cfg.AnonKey
	}
	headers := map[string]string{
		"apikey": key,
		"Accept": "application/json",
	}

	return &Client{
		cfg: cfg,
		rest: httputil.NewClient(httputil.ClientConfig{
			BaseURL: base + "/rest/v1",
			Headers: headers,
			Timeout: cfg.Timeout,
		}),
		auth: httputil.NewClient(httputil.ClientConfig{
			BaseURL: base + "/auth/v1",
			Headers: map[string]string{"apikey": cfg.AnonKey},
			Timeout: cfg.Timeout,
		}),
	}, nil
}

// authHeader picks the bearer token for a call: the user token when given,
// otherwise the service key.
func (c *Client) authHeader(userToken string) map[string]string {
	token := userToken
	if token == "" {
		token = c.cfg.ServiceKey
	}
	if token == "" {
		token = c.cfg.AnonKey
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// Select performs a GET on a table with an encoded PostgREST query string and
// decodes the row set into target.
func (c *Client) Select(ctx context.Context, table, query, userToken string, target interface{}) error {
	if table == "" {
		return fmt.Errorf("table is required")
	}
	path := "/" + url.PathEscape(table)
	if query != "" {
		path += "?" + query
	}
	resp, err := c.rest.Get(ctx, path, c.authHeader(userToken))
	if err != nil {
		return err
	}
	return httputil.DecodeResponse(resp, target)
}

// Insert performs a POST insert into a table and decodes the returned
// representation into target when non-nil.
func (c *Client) Insert(ctx context.Context, table, userToken string, body, target interface{}) error {
	if table == "" {
		return fmt.Errorf("table is required")
	}
	headers := c.authHeader(userToken)
	headers["Prefer"] = "return=representation"
	resp, err := c.rest.Post(ctx, "/"+url.PathEscape(table), body, headers)
	if err != nil {
		return err
	}
	return httputil.DecodeResponse(resp, target)
}

// Update performs a PATCH on the rows matched by query.
func (c *Client) Update(ctx context.Context, table, query, userToken string, body, target interface{}) error {
	if table == "" {
		return fmt.Errorf("table is required")
	}
	headers := c.authHeader(userToken)
	headers["Prefer"] = "return=representation"
	resp, err := c.rest.Patch(ctx, "/"+url.PathEscape(table)+"?"+query, body, headers)
	if err != nil {
		return err
	}
	return httputil.DecodeResponse(resp, target)
}

// Delete removes the rows matched by query.
func (c *Client) Delete(ctx context.Context, table, query, userToken string) error {
	if table == "" {
		return fmt.Errorf("table is required")
	}
	resp, err := c.rest.Delete(ctx, "/"+url.PathEscape(table)+"?"+query, c.authHeader(userToken))
	if err != nil {
		return err
	}
	return httputil.DecodeResponse(resp, nil)
}

// RPC invokes a Postgres function through PostgREST and decodes its result.
func (c *Client) RPC(ctx context.Context, fn, userToken string, args, target interface{}) error {
	if fn == "" {
		return fmt.Errorf("function name is required")
	}
	resp, err := c.rest.Post(ctx, "/rpc/"+url.PathEscape(fn), args, c.authHeader(userToken))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusConflict {
		resp.Body.Close()
		return fmt.Errorf("rpc %s: conflict", fn)
	}
	return httputil.DecodeResponse(resp, target)
}
