package credits

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/logoforge/logoforge/internal/app/domain/credit"
	"github.com/logoforge/logoforge/internal/app/services/subscription"
	"github.com/logoforge/logoforge/internal/app/storage"
	"github.com/logoforge/logoforge/internal/app/storage/memory"
	"github.com/logoforge/logoforge/internal/config"
	"github.com/logoforge/logoforge/internal/errors"
)

type mapCache struct {
	items map[string]any
}

func (m *mapCache) Get(key string) (any, bool) {
	v, ok := m.items[key]
	return v, ok
}

func (m *mapCache) Set(key string, value any, _ time.Duration) {
	m.items[key] = value
}

func newTestService(t *testing.T, store *memory.Store, now func() time.Time) *Service {
	t.Helper()
	checker, err := subscription.NewChecker(store, &mapCache{items: map[string]any{}}, config.DefaultCatalog(), subscription.DefaultTTL, now, nil)
	if err != nil {
		t.Fatalf("new checker: %v", err)
	}
	svc, err := New(store, checker, now, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestConsumeAndBalance(t *testing.T) {
	store := memory.New()
	store.SetSubscription(credit.Subscription{UserID: "u1", Plan: "free", Active: true})
	now := func() time.Time { return time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC) }
	svc := newTestService(t, store, now)
	ctx := context.Background()

	bal, err := svc.Consume(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if bal.Used != 1 {
		t.Fatalf("used = %d, want 1", bal.Used)
	}
	wantPeriod := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !bal.PeriodStart.Equal(wantPeriod) {
		t.Fatalf("period start = %v, want %v", bal.PeriodStart, wantPeriod)
	}

	read, err := svc.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if read.Used != 1 || read.Remaining() != read.Allowance-1 {
		t.Fatalf("unexpected balance %+v", read)
	}
}

func TestConsumeInsufficientIs403WithRemaining(t *testing.T) {
	store := memory.New()
	now := func() time.Time { return time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC) }
	svc := newTestService(t, store, now)
	ctx := context.Background()

	// Free plan allowance; drain it entirely.
	allowance := config.DefaultCatalog().PlanOrFree("free").GenerationsPerMonth
	if _, err := svc.Consume(ctx, "u1", allowance); err != nil {
		t.Fatalf("drain: %v", err)
	}

	_, err := svc.Consume(ctx, "u1", 1)
	serr := errors.GetServiceError(err)
	if serr == nil || serr.HTTPStatus != http.StatusForbidden {
		t.Fatalf("expected 403 service error, got %v", err)
	}
	if serr.Code != errors.CodeInsufficientCredits {
		t.Fatalf("code = %q", serr.Code)
	}
}

func TestConsumeRejectsNonPositiveAmount(t *testing.T) {
	store := memory.New()
	svc := newTestService(t, store, nil)

	for _, amount := range []int{0, -3} {
		_, err := svc.Consume(context.Background(), "u1", amount)
		serr := errors.GetServiceError(err)
		if serr == nil || serr.HTTPStatus != http.StatusBadRequest {
			t.Fatalf("amount %d: expected 400, got %v", amount, err)
		}
	}
}

func TestMonthlyRollover(t *testing.T) {
	store := memory.New()
	current := time.Date(2026, 9, 28, 8, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	svc := newTestService(t, store, now)
	ctx := context.Background()

	if _, err := svc.Consume(ctx, "u1", 2); err != nil {
		t.Fatalf("consume: %v", err)
	}

	// Next month the window resets lazily on first touch.
	current = time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)
	bal, err := svc.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Used != 0 {
		t.Fatalf("used should reset after rollover, got %d", bal.Used)
	}
	if !bal.PeriodStart.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("period start = %v", bal.PeriodStart)
	}
}

func TestLedgerRecordsDeductions(t *testing.T) {
	store := memory.New()
	svc := newTestService(t, store, nil)
	ctx := context.Background()

	if _, err := svc.Consume(ctx, "u1", 1); err != nil {
		t.Fatalf("consume: %v", err)
	}
	entries, err := svc.Ledger(ctx, "u1")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Amount != 1 || entries[0].Reason != "generation" {
		t.Fatalf("unexpected ledger %+v", entries)
	}
}

var _ storage.CreditStore = (*memory.Store)(nil)
