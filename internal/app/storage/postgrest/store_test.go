package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/app/storage"
	"github.com/logoforge/logoforge/internal/supabase"
)

// recordedRequest captures one PostgREST call with its body buffered, since
// the live request body is gone once the handler returns.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// fakeRest records PostgREST calls and serves canned JSON per path.
type fakeRest struct {
	t        *testing.T
	mux      *http.ServeMux
	requests []recordedRequest
}

func newFakeRest(t *testing.T) (*fakeRest, *Store) {
	t.Helper()
	f := &fakeRest{t: t, mux: http.NewServeMux()}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		r.Body = io.NopCloser(bytes.NewReader(body))
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{
		ProjectURL: srv.URL,
		ServiceKey: "service-key",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	store, err := New(client)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.now = func() time.Time { return time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC) }
	return f, store
}

func (f *fakeRest) respond(pattern string, status int, body any) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			if err := json.NewEncoder(w).Encode(body); err != nil {
				f.t.Errorf("encode response: %v", err)
			}
		}
	})
}

func (f *fakeRest) last() recordedRequest {
	if len(f.requests) == 0 {
		f.t.Fatal("no requests recorded")
	}
	return f.requests[len(f.requests)-1]
}

func TestCreateIcon(t *testing.T) {
	f, store := newFakeRest(t)
	f.respond("POST /rest/v1/icons", http.StatusCreated, []iconRow{{
		ID:     "icon-1",
		UserID: "u1",
		Name:   "fox",
		Tags:   []string{"animal"},
	}})

	saved, err := store.CreateIcon(context.Background(), icon.Icon{UserID: "u1", Name: "fox", Tags: []string{"animal"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.ID != "icon-1" || saved.UserID != "u1" {
		t.Fatalf("unexpected icon %+v", saved)
	}

	req := f.last()
	if got := req.Header.Get("Prefer"); got != "return=representation" {
		t.Fatalf("Prefer header = %q", got)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer service-key" {
		t.Fatalf("Authorization = %q", got)
	}

	var sent iconRow
	if err := json.Unmarshal(req.Body, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent.ID == "" {
		t.Fatal("client must assign an id before insert")
	}
	if sent.CreatedAt.IsZero() || !sent.CreatedAt.Equal(sent.UpdatedAt) {
		t.Fatalf("timestamps not set: %+v", sent)
	}
}

func TestGetIcon_NotFound(t *testing.T) {
	f, store := newFakeRest(t)
	f.respond("GET /rest/v1/icons", http.StatusOK, []iconRow{})

	_, err := store.GetIcon(context.Background(), "u1", "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	q := f.last().Query
	if q.Get("user_id") != "eq.u1" || q.Get("id") != "eq.missing" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestListIcons_QueryShape(t *testing.T) {
	f, store := newFakeRest(t)
	f.respond("GET /rest/v1/icons", http.StatusOK, []iconRow{{ID: "icon-1", UserID: "u1"}})

	fav := true
	icons, err := store.ListIcons(context.Background(), "u1", icon.ListFilter{
		Style:    "minimalist",
		Tag:      "animal",
		Favorite: &fav,
		SortBy:   "name",
		Order:    "asc",
		Limit:    10,
		Offset:   20,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(icons) != 1 {
		t.Fatalf("expected 1 icon, got %d", len(icons))
	}

	q := f.last().Query
	want := map[string]string{
		"user_id":  "eq.u1",
		"style":    "eq.minimalist",
		"favorite": "is.true",
		"tags":     "cs.{animal}",
		"order":    "name.asc",
		"limit":    "10",
		"offset":   "20",
	}
	for key, val := range want {
		if got := q.Get(key); got != val {
			t.Errorf("query %s = %q, want %q", key, got, val)
		}
	}
}

func TestDeleteIcon_ChecksExistence(t *testing.T) {
	f, store := newFakeRest(t)
	f.respond("GET /rest/v1/icons", http.StatusOK, []iconRow{})

	err := store.DeleteIcon(context.Background(), "u1", "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if last := f.last(); last.Method != http.MethodGet {
		t.Fatalf("delete must stop at the existence check, got %s %s", last.Method, last.Path)
	}
}

func TestGetBalance_StalePeriodResets(t *testing.T) {
	periodStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	f, store := newFakeRest(t)
	f.respond("GET /rest/v1/credit_balances", http.StatusOK, []balanceRow{{
		UserID:      "u1",
		Used:        4,
		PeriodStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}})

	bal, err := store.GetBalance(context.Background(), "u1", 5, periodStart)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Used != 0 {
		t.Fatalf("stale period must reset usage, got used=%d", bal.Used)
	}
	if bal.Allowance != 5 || !bal.PeriodStart.Equal(periodStart) {
		t.Fatalf("unexpected balance %+v", bal)
	}
}

func TestConsumeCredits(t *testing.T) {
	periodStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	f, store := newFakeRest(t)
	f.respond("POST /rest/v1/rpc/consume_credits", http.StatusOK, 3)
	f.respond("POST /rest/v1/credit_ledger", http.StatusCreated, nil)

	bal, err := store.ConsumeCredits(context.Background(), "u1", 1, 5, periodStart)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if bal.Used != 3 || bal.Remaining() != 2 {
		t.Fatalf("unexpected balance %+v", bal)
	}

	req := f.last()
	if req.Path != "/rest/v1/credit_ledger" {
		t.Fatalf("last call = %s, want the ledger insert", req.Path)
	}
	var entry ledgerRow
	if err := json.Unmarshal(req.Body, &entry); err != nil {
		t.Fatalf("decode ledger entry: %v", err)
	}
	if entry.Reason != "generation" || entry.Amount != 1 {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}
}

func TestConsumeCredits_Insufficient(t *testing.T) {
	f, store := newFakeRest(t)
	f.respond("POST /rest/v1/rpc/consume_credits", http.StatusOK, -1)

	_, err := store.ConsumeCredits(context.Background(), "u1", 10, 5, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, storage.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if len(f.requests) != 1 {
		t.Fatal("no ledger entry may be written on a rejected consume")
	}
}

func TestGetSubscription(t *testing.T) {
	renews := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	f, store := newFakeRest(t)
	f.respond("GET /rest/v1/subscriptions", http.StatusOK, []subscriptionRow{{
		UserID:   "u1",
		Plan:     "pro",
		Active:   true,
		RenewsAt: &renews,
	}})

	sub, err := store.GetSubscription(context.Background(), "u1")
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	if sub.Plan != "pro" || !sub.Active || !sub.RenewsAt.Equal(renews) {
		t.Fatalf("unexpected subscription %+v", sub)
	}
}

func TestGetSubscription_NotFound(t *testing.T) {
	f, store := newFakeRest(t)
	f.respond("GET /rest/v1/subscriptions", http.StatusOK, []subscriptionRow{})

	_, err := store.GetSubscription(context.Background(), "u1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
