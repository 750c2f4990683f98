// Package storage defines the persistence interfaces for the application
// services and their shared sentinel errors.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/logoforge/logoforge/internal/app/domain/credit"
	"github.com/logoforge/logoforge/internal/app/domain/icon"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrInsufficientCredits is returned when a deduction would exceed the
// monthly allowance.
var ErrInsufficientCredits = errors.New("insufficient credits")

// IconStore persists saved library icons.
type IconStore interface {
	CreateIcon(ctx context.Context, ic icon.Icon) (icon.Icon, error)
	UpdateIcon(ctx context.Context, ic icon.Icon) (icon.Icon, error)
	GetIcon(ctx context.Context, userID, id string) (icon.Icon, error)
	ListIcons(ctx context.Context, userID string, filter icon.ListFilter) ([]icon.Icon, error)
	DeleteIcon(ctx context.Context, userID, id string) error
}

// CreditStore persists credit balances and the deduction ledger. The store
// performs the lazy monthly rollover: when the stored period differs from
// periodStart, usage resets before the operation applies.
type CreditStore interface {
	GetBalance(ctx context.Context, userID string, allowance int, periodStart time.Time) (credit.Balance, error)
	ConsumeCredits(ctx context.Context, userID string, amount, allowance int, periodStart time.Time) (credit.Balance, error)
	ListLedgerEntries(ctx context.Context, userID string) ([]credit.LedgerEntry, error)
}

// SubscriptionStore reads billing state owned by the external billing
// provider's sync process.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID string) (credit.Subscription, error)
}
