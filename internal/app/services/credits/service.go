// Package credits implements the monthly credit ledger: balance reads and
// the pre-generation consume call.
package credits

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/logoforge/logoforge/internal/app/domain/credit"
	"github.com/logoforge/logoforge/internal/app/services/subscription"
	"github.com/logoforge/logoforge/internal/app/storage"
	"github.com/logoforge/logoforge/internal/errors"
	"github.com/logoforge/logoforge/internal/metrics"
	"github.com/logoforge/logoforge/pkg/logger"
)

// Service owns credit accounting. Consumption is a separate call the
// client makes before generation; the two are not transactionally linked
// and a failed generation is not refunded.
type Service struct {
	store   storage.CreditStore
	checker *subscription.Checker
	now     func() time.Time
	log     *logger.Logger
}

// New creates the credits service. A nil now selects time.Now.
func New(store storage.CreditStore, checker *subscription.Checker, now func() time.Time, log *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("credits: store is required")
	}
	if checker == nil {
		return nil, fmt.Errorf("credits: subscription checker is required")
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewDefault("credits")
	}
	return &Service{store: store, checker: checker, now: now, log: log}, nil
}

// periodStart returns the first instant of the current month in UTC. The
// monthly window boundary is computed here, never stored.
func (s *Service) periodStart() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Balance returns the user's allowance state for the current window.
func (s *Service) Balance(ctx context.Context, userID string) (credit.Balance, error) {
	allowance, err := s.checker.Allowance(ctx, userID)
	if err != nil {
		return credit.Balance{}, errors.Internal("resolve subscription", err)
	}
	bal, err := s.store.GetBalance(ctx, userID, allowance, s.periodStart())
	if err != nil {
		return credit.Balance{}, errors.Internal("read credit balance", err)
	}
	return bal, nil
}

// Consume atomically deducts amount credits from the current window.
// Insufficient allowance surfaces as a 403 carrying the remaining count.
func (s *Service) Consume(ctx context.Context, userID string, amount int) (credit.Balance, error) {
	if amount <= 0 {
		return credit.Balance{}, errors.BadRequest("amount must be positive")
	}

	allowance, err := s.checker.Allowance(ctx, userID)
	if err != nil {
		return credit.Balance{}, errors.Internal("resolve subscription", err)
	}

	bal, err := s.store.ConsumeCredits(ctx, userID, amount, allowance, s.periodStart())
	if stderrors.Is(err, storage.ErrInsufficientCredits) {
		current, balErr := s.store.GetBalance(ctx, userID, allowance, s.periodStart())
		if balErr != nil {
			current = credit.Balance{UserID: userID, Allowance: allowance, Used: allowance}
		}
		s.log.WithFields(map[string]any{"user_id": userID, "remaining": current.Remaining()}).Warn("credit consume rejected")
		return credit.Balance{}, errors.InsufficientCredits(current.Remaining())
	}
	if err != nil {
		return credit.Balance{}, errors.Internal("consume credits", err)
	}

	metrics.RecordCreditsConsumed(amount)
	return bal, nil
}

// Ledger returns the user's deduction history, newest first.
func (s *Service) Ledger(ctx context.Context, userID string) ([]credit.LedgerEntry, error) {
	entries, err := s.store.ListLedgerEntries(ctx, userID)
	if err != nil {
		return nil, errors.Internal("read credit ledger", err)
	}
	return entries, nil
}
