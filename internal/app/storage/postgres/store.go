package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/logoforge/logoforge/internal/app/domain/credit"
	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.IconStore = (*Store)(nil)
var _ storage.CreditStore = (*Store)(nil)
var _ storage.SubscriptionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- IconStore --------------------------------------------------------------

func (s *Store) CreateIcon(ctx context.Context, ic icon.Icon) (icon.Icon, error) {
	if ic.ID == "" {
		ic.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ic.CreatedAt = now
	ic.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO icons (id, user_id, name, image_url, style, prompt, tags, favorite, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ic.ID, ic.UserID, ic.Name, ic.ImageURL, ic.Style, ic.Prompt, pq.Array(ic.Tags), ic.Favorite, ic.CreatedAt, ic.UpdatedAt)
	if err != nil {
		return icon.Icon{}, err
	}
	return ic, nil
}

func (s *Store) UpdateIcon(ctx context.Context, ic icon.Icon) (icon.Icon, error) {
	existing, err := s.GetIcon(ctx, ic.UserID, ic.ID)
	if err != nil {
		return icon.Icon{}, err
	}

	ic.CreatedAt = existing.CreatedAt
	ic.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE icons
		SET name = $3, image_url = $4, style = $5, prompt = $6, tags = $7, favorite = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2
	`, ic.ID, ic.UserID, ic.Name, ic.ImageURL, ic.Style, ic.Prompt, pq.Array(ic.Tags), ic.Favorite, ic.UpdatedAt)
	if err != nil {
		return icon.Icon{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return icon.Icon{}, storage.ErrNotFound
	}
	return ic, nil
}

func (s *Store) GetIcon(ctx context.Context, userID, id string) (icon.Icon, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, image_url, style, prompt, tags, favorite, created_at, updated_at
		FROM icons
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	ic, err := scanIcon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return icon.Icon{}, storage.ErrNotFound
	}
	return ic, err
}

func (s *Store) ListIcons(ctx context.Context, userID string, filter icon.ListFilter) ([]icon.Icon, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, user_id, name, image_url, style, prompt, tags, favorite, created_at, updated_at
		FROM icons
		WHERE user_id = $1
	`)
	args := []any{userID}

	if filter.Style != "" {
		args = append(args, filter.Style)
		fmt.Fprintf(&query, " AND style = $%d", len(args))
	}
	if filter.Favorite != nil {
		args = append(args, *filter.Favorite)
		fmt.Fprintf(&query, " AND favorite = $%d", len(args))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		fmt.Fprintf(&query, " AND $%d = ANY(tags)", len(args))
	}

	column := "created_at"
	if filter.SortBy == "name" {
		column = "name"
	}
	direction := "DESC"
	if filter.Order == "asc" {
		direction = "ASC"
	}
	fmt.Fprintf(&query, " ORDER BY %s %s", column, direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&query, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&query, " OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []icon.Icon
	for rows.Next() {
		ic, err := scanIcon(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ic)
	}
	return result, rows.Err()
}

func (s *Store) DeleteIcon(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM icons WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIcon(row rowScanner) (icon.Icon, error) {
	var (
		ic   icon.Icon
		tags pq.StringArray
	)
	if err := row.Scan(&ic.ID, &ic.UserID, &ic.Name, &ic.ImageURL, &ic.Style, &ic.Prompt, &tags, &ic.Favorite, &ic.CreatedAt, &ic.UpdatedAt); err != nil {
		return icon.Icon{}, err
	}
	ic.Tags = []string(tags)
	return ic, nil
}

// --- CreditStore ------------------------------------------------------------

func (s *Store) GetBalance(ctx context.Context, userID string, allowance int, periodStart time.Time) (credit.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT used, period_start
		FROM credit_balances
		WHERE user_id = $1
	`, userID)

	bal := credit.Balance{UserID: userID, Allowance: allowance, PeriodStart: periodStart}

	var stored time.Time
	err := row.Scan(&bal.Used, &stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return bal, nil
	case err != nil:
		return credit.Balance{}, err
	}

	// A stale period means the window rolled over and usage resets.
	if !stored.UTC().Equal(periodStart.UTC()) {
		bal.Used = 0
	}
	return bal, nil
}

// ConsumeCredits delegates to the consume_credits SQL function, which resets
// a stale window and applies the deduction in one statement. The function
// returns the used total after the deduction, or -1 when the allowance would
// be exceeded.
func (s *Store) ConsumeCredits(ctx context.Context, userID string, amount, allowance int, periodStart time.Time) (credit.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT consume_credits($1, $2, $3, $4)
	`, userID, amount, allowance, periodStart.UTC())

	var used int
	if err := row.Scan(&used); err != nil {
		return credit.Balance{}, err
	}
	if used < 0 {
		return credit.Balance{}, storage.ErrInsufficientCredits
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_ledger (id, user_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), userID, amount, "generation", time.Now().UTC())
	if err != nil {
		return credit.Balance{}, err
	}

	return credit.Balance{UserID: userID, Allowance: allowance, Used: used, PeriodStart: periodStart}, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, userID string) ([]credit.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, reason, created_at
		FROM credit_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []credit.LedgerEntry
	for rows.Next() {
		var entry credit.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Amount, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// --- SubscriptionStore ------------------------------------------------------

func (s *Store) GetSubscription(ctx context.Context, userID string) (credit.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, plan, active, renews_at
		FROM subscriptions
		WHERE user_id = $1
	`, userID)

	var (
		sub      credit.Subscription
		renewsAt sql.NullTime
	)
	err := row.Scan(&sub.UserID, &sub.Plan, &sub.Active, &renewsAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return credit.Subscription{}, storage.ErrNotFound
	case err != nil:
		return credit.Subscription{}, err
	}
	if renewsAt.Valid {
		sub.RenewsAt = renewsAt.Time
	}
	return sub, nil
}
