// Package memory implements the storage interfaces in process memory. It is
// safe for concurrent use and is primarily intended for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/logoforge/logoforge/internal/app/domain/credit"
	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	icons         map[string]icon.Icon
	balances      map[string]credit.Balance
	ledger        map[string][]credit.LedgerEntry
	subscriptions map[string]credit.Subscription
}

var _ storage.IconStore = (*Store)(nil)
var _ storage.CreditStore = (*Store)(nil)
var _ storage.SubscriptionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		icons:         make(map[string]icon.Icon),
		balances:      make(map[string]credit.Balance),
		ledger:        make(map[string][]credit.LedgerEntry),
		subscriptions: make(map[string]credit.Subscription),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// IconStore implementation ----------------------------------------------------

func (s *Store) CreateIcon(_ context.Context, ic icon.Icon) (icon.Icon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ic.UserID == "" {
		return icon.Icon{}, fmt.Errorf("user id is required")
	}
	if ic.ID == "" {
		ic.ID = s.nextIDLocked()
	} else if _, exists := s.icons[ic.ID]; exists {
		return icon.Icon{}, fmt.Errorf("icon %s already exists", ic.ID)
	}

	now := time.Now().UTC()
	ic.CreatedAt = now
	ic.UpdatedAt = now
	ic.Tags = cloneTags(ic.Tags)

	s.icons[ic.ID] = ic
	return cloneIcon(ic), nil
}

func (s *Store) UpdateIcon(_ context.Context, ic icon.Icon) (icon.Icon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.icons[ic.ID]
	if !ok || original.UserID != ic.UserID {
		return icon.Icon{}, storage.ErrNotFound
	}

	ic.CreatedAt = original.CreatedAt
	ic.UpdatedAt = time.Now().UTC()
	ic.Tags = cloneTags(ic.Tags)

	s.icons[ic.ID] = ic
	return cloneIcon(ic), nil
}

func (s *Store) GetIcon(_ context.Context, userID, id string) (icon.Icon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ic, ok := s.icons[id]
	if !ok || ic.UserID != userID {
		return icon.Icon{}, storage.ErrNotFound
	}
	return cloneIcon(ic), nil
}

func (s *Store) ListIcons(_ context.Context, userID string, filter icon.ListFilter) ([]icon.Icon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []icon.Icon
	for _, ic := range s.icons {
		if ic.UserID != userID {
			continue
		}
		if filter.Style != "" && ic.Style != filter.Style {
			continue
		}
		if filter.Favorite != nil && ic.Favorite != *filter.Favorite {
			continue
		}
		if filter.Tag != "" && !hasTag(ic.Tags, filter.Tag) {
			continue
		}
		out = append(out, cloneIcon(ic))
	}

	sortIcons(out, filter.SortBy, filter.Order)

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) DeleteIcon(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ic, ok := s.icons[id]
	if !ok || ic.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.icons, id)
	return nil
}

func sortIcons(icons []icon.Icon, sortBy, order string) {
	desc := strings.EqualFold(order, "desc")
	switch sortBy {
	case "name":
		sort.SliceStable(icons, func(i, j int) bool {
			if desc {
				return icons[i].Name > icons[j].Name
			}
			return icons[i].Name < icons[j].Name
		})
	default: // created_at
		sort.SliceStable(icons, func(i, j int) bool {
			if desc {
				return icons[i].CreatedAt.After(icons[j].CreatedAt)
			}
			return icons[i].CreatedAt.Before(icons[j].CreatedAt)
		})
	}
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// CreditStore implementation --------------------------------------------------

// balanceLocked returns the user's balance with the monthly rollover applied.
func (s *Store) balanceLocked(userID string, allowance int, periodStart time.Time) credit.Balance {
	bal, ok := s.balances[userID]
	if !ok || !bal.PeriodStart.Equal(periodStart) {
		bal = credit.Balance{UserID: userID, Allowance: allowance, PeriodStart: periodStart}
	}
	bal.Allowance = allowance
	return bal
}

func (s *Store) GetBalance(_ context.Context, userID string, allowance int, periodStart time.Time) (credit.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.balanceLocked(userID, allowance, periodStart)
	s.balances[userID] = bal
	return bal, nil
}

func (s *Store) ConsumeCredits(_ context.Context, userID string, amount, allowance int, periodStart time.Time) (credit.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal := s.balanceLocked(userID, allowance, periodStart)
	if bal.Used+amount > bal.Allowance {
		s.balances[userID] = bal
		return bal, storage.ErrInsufficientCredits
	}

	bal.Used += amount
	s.balances[userID] = bal

	entry := credit.LedgerEntry{
		ID:        s.nextIDLocked(),
		UserID:    userID,
		Amount:    amount,
		Reason:    "generation",
		CreatedAt: time.Now().UTC(),
	}
	s.ledger[userID] = append(s.ledger[userID], entry)
	return bal, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, userID string) ([]credit.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.ledger[userID]
	out := make([]credit.LedgerEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// SubscriptionStore implementation --------------------------------------------

func (s *Store) GetSubscription(_ context.Context, userID string) (credit.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[userID]
	if !ok {
		return credit.Subscription{}, storage.ErrNotFound
	}
	return sub, nil
}

// SetSubscription seeds billing state. Intended for tests and local
// development.
func (s *Store) SetSubscription(sub credit.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.UserID] = sub
}

func cloneIcon(ic icon.Icon) icon.Icon {
	ic.Tags = cloneTags(ic.Tags)
	return ic
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
