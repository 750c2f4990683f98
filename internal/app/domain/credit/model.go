// Package credit holds the domain types for the monthly credit ledger.
package credit

import "time"

// Balance is a user's allowance state within the current monthly window.
type Balance struct {
	UserID      string    `json:"userId"`
	Allowance   int       `json:"allowance"`
	Used        int       `json:"used"`
	PeriodStart time.Time `json:"periodStart"`
}

// Remaining returns the credits still available this period.
func (b Balance) Remaining() int {
	if b.Used >= b.Allowance {
		return 0
	}
	return b.Allowance - b.Used
}

// LedgerEntry records one deduction from a user's allowance.
type LedgerEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription is the billing state consulted before generation.
type Subscription struct {
	UserID    string    `json:"userId"`
	Plan      string    `json:"plan"`
	Active    bool      `json:"active"`
	RenewsAt  time.Time `json:"renewsAt,omitempty"`
	CheckedAt time.Time `json:"-"`
}
