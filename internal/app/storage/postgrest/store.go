// Package postgrest implements the storage interfaces over the Supabase
// PostgREST API. It is the default production backend when no direct
// Postgres connection is configured.
package postgrest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/logoforge/logoforge/internal/app/domain/credit"
	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/app/storage"
	"github.com/logoforge/logoforge/internal/supabase"
)

// Store talks to the Supabase tables through PostgREST under the service
// key. Row-level security is bypassed; user scoping happens in the queries.
type Store struct {
	client *supabase.Client
	now    func() time.Time
}

var _ storage.IconStore = (*Store)(nil)
var _ storage.CreditStore = (*Store)(nil)
var _ storage.SubscriptionStore = (*Store)(nil)

// New creates a Store over the given Supabase client.
func New(client *supabase.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("supabase client is required")
	}
	return &Store{client: client, now: time.Now}, nil
}

// iconRow mirrors the icons table columns.
type iconRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	Style     string    `json:"style"`
	Prompt    string    `json:"prompt"`
	Tags      []string  `json:"tags"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r iconRow) domain() icon.Icon {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return icon.Icon{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		ImageURL:  r.ImageURL,
		Style:     r.Style,
		Prompt:    r.Prompt,
		Tags:      tags,
		Favorite:  r.Favorite,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func rowFromIcon(ic icon.Icon) iconRow {
	return iconRow{
		ID:        ic.ID,
		UserID:    ic.UserID,
		Name:      ic.Name,
		ImageURL:  ic.ImageURL,
		Style:     ic.Style,
		Prompt:    ic.Prompt,
		Tags:      ic.Tags,
		Favorite:  ic.Favorite,
		CreatedAt: ic.CreatedAt,
		UpdatedAt: ic.UpdatedAt,
	}
}

// scope builds the PostgREST filter pinning a row set to one user.
func scope(userID string) url.Values {
	v := url.Values{}
	v.Set("user_id", "eq."+userID)
	return v
}

// --- IconStore --------------------------------------------------------------

func (s *Store) CreateIcon(ctx context.Context, ic icon.Icon) (icon.Icon, error) {
	if ic.ID == "" {
		ic.ID = uuid.NewString()
	}
	now := s.now().UTC()
	ic.CreatedAt = now
	ic.UpdatedAt = now

	var rows []iconRow
	if err := s.client.Insert(ctx, "icons", "", rowFromIcon(ic), &rows); err != nil {
		return icon.Icon{}, fmt.Errorf("insert icon: %w", err)
	}
	if len(rows) == 0 {
		return ic, nil
	}
	return rows[0].domain(), nil
}

func (s *Store) UpdateIcon(ctx context.Context, ic icon.Icon) (icon.Icon, error) {
	existing, err := s.GetIcon(ctx, ic.UserID, ic.ID)
	if err != nil {
		return icon.Icon{}, err
	}
	ic.CreatedAt = existing.CreatedAt
	ic.UpdatedAt = s.now().UTC()

	query := scope(ic.UserID)
	query.Set("id", "eq."+ic.ID)

	var rows []iconRow
	if err := s.client.Update(ctx, "icons", query.Encode(), "", rowFromIcon(ic), &rows); err != nil {
		return icon.Icon{}, fmt.Errorf("update icon: %w", err)
	}
	if len(rows) == 0 {
		return icon.Icon{}, storage.ErrNotFound
	}
	return rows[0].domain(), nil
}

func (s *Store) GetIcon(ctx context.Context, userID, id string) (icon.Icon, error) {
	query := scope(userID)
	query.Set("id", "eq."+id)
	query.Set("limit", "1")

	var rows []iconRow
	if err := s.client.Select(ctx, "icons", query.Encode(), "", &rows); err != nil {
		return icon.Icon{}, fmt.Errorf("get icon: %w", err)
	}
	if len(rows) == 0 {
		return icon.Icon{}, storage.ErrNotFound
	}
	return rows[0].domain(), nil
}

func (s *Store) ListIcons(ctx context.Context, userID string, filter icon.ListFilter) ([]icon.Icon, error) {
	query := scope(userID)
	if filter.Style != "" {
		query.Set("style", "eq."+filter.Style)
	}
	if filter.Favorite != nil {
		query.Set("favorite", "is."+strconv.FormatBool(*filter.Favorite))
	}
	if filter.Tag != "" {
		query.Set("tags", "cs.{"+filter.Tag+"}")
	}

	column := "created_at"
	if filter.SortBy == "name" {
		column = "name"
	}
	direction := "desc"
	if filter.Order == "asc" {
		direction = "asc"
	}
	query.Set("order", column+"."+direction)

	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}

	var rows []iconRow
	if err := s.client.Select(ctx, "icons", query.Encode(), "", &rows); err != nil {
		return nil, fmt.Errorf("list icons: %w", err)
	}
	result := make([]icon.Icon, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.domain())
	}
	return result, nil
}

func (s *Store) DeleteIcon(ctx context.Context, userID, id string) error {
	// PostgREST deletes are silent on zero matched rows, so existence is
	// checked first to preserve the not-found contract.
	if _, err := s.GetIcon(ctx, userID, id); err != nil {
		return err
	}

	query := scope(userID)
	query.Set("id", "eq."+id)
	if err := s.client.Delete(ctx, "icons", query.Encode(), ""); err != nil {
		return fmt.Errorf("delete icon: %w", err)
	}
	return nil
}

// --- CreditStore ------------------------------------------------------------

type balanceRow struct {
	UserID      string    `json:"user_id"`
	Used        int       `json:"used"`
	PeriodStart time.Time `json:"period_start"`
}

func (s *Store) GetBalance(ctx context.Context, userID string, allowance int, periodStart time.Time) (credit.Balance, error) {
	query := scope(userID)
	query.Set("limit", "1")

	var rows []balanceRow
	if err := s.client.Select(ctx, "credit_balances", query.Encode(), "", &rows); err != nil {
		return credit.Balance{}, fmt.Errorf("get balance: %w", err)
	}

	bal := credit.Balance{UserID: userID, Allowance: allowance, PeriodStart: periodStart}
	if len(rows) == 0 {
		return bal, nil
	}

	// A stale period means the window rolled over and usage resets.
	if rows[0].PeriodStart.UTC().Equal(periodStart.UTC()) {
		bal.Used = rows[0].Used
	}
	return bal, nil
}

type consumeArgs struct {
	UserID      string    `json:"p_user_id"`
	Amount      int       `json:"p_amount"`
	Allowance   int       `json:"p_allowance"`
	PeriodStart time.Time `json:"p_period_start"`
}

type ledgerRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// ConsumeCredits calls the consume_credits function through the PostgREST
// RPC endpoint. The function applies rollover and deduction atomically and
// returns the used total, or -1 when the allowance would be exceeded.
func (s *Store) ConsumeCredits(ctx context.Context, userID string, amount, allowance int, periodStart time.Time) (credit.Balance, error) {
	args := consumeArgs{
		UserID:      userID,
		Amount:      amount,
		Allowance:   allowance,
		PeriodStart: periodStart.UTC(),
	}

	var used int
	if err := s.client.RPC(ctx, "consume_credits", "", args, &used); err != nil {
		return credit.Balance{}, fmt.Errorf("consume credits: %w", err)
	}
	if used < 0 {
		return credit.Balance{}, storage.ErrInsufficientCredits
	}

	entry := ledgerRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Reason:    "generation",
		CreatedAt: s.now().UTC(),
	}
	if err := s.client.Insert(ctx, "credit_ledger", "", entry, nil); err != nil {
		return credit.Balance{}, fmt.Errorf("record ledger entry: %w", err)
	}

	return credit.Balance{UserID: userID, Allowance: allowance, Used: used, PeriodStart: periodStart}, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, userID string) ([]credit.LedgerEntry, error) {
	query := scope(userID)
	query.Set("order", "created_at.desc")

	var rows []ledgerRow
	if err := s.client.Select(ctx, "credit_ledger", query.Encode(), "", &rows); err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	result := make([]credit.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		result = append(result, credit.LedgerEntry{
			ID:        r.ID,
			UserID:    r.UserID,
			Amount:    r.Amount,
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt,
		})
	}
	return result, nil
}

// --- SubscriptionStore ------------------------------------------------------

type subscriptionRow struct {
	UserID   string     `json:"user_id"`
	Plan     string     `json:"plan"`
	Active   bool       `json:"active"`
	RenewsAt *time.Time `json:"renews_at"`
}

func (s *Store) GetSubscription(ctx context.Context, userID string) (credit.Subscription, error) {
	query := scope(userID)
	query.Set("limit", "1")

	var rows []subscriptionRow
	if err := s.client.Select(ctx, "subscriptions", query.Encode(), "", &rows); err != nil {
		return credit.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	if len(rows) == 0 {
		return credit.Subscription{}, storage.ErrNotFound
	}

	sub := credit.Subscription{
		UserID: rows[0].UserID,
		Plan:   rows[0].Plan,
		Active: rows[0].Active,
	}
	if rows[0].RenewsAt != nil {
		sub.RenewsAt = *rows[0].RenewsAt
	}
	return sub, nil
}
