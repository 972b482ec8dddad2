package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("ledger: record not found")

type LinkType string

const (
	LinkStandard LinkType = "standard"
	LinkStepwise LinkType = "stepwise"
)

type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// SharedPayoutLink lets the bearer of Token submit payouts into OwnerID's ledger.
type SharedPayoutLink struct {
	ID        string
	Token     string
	OwnerID   string
	Name      string
	IsActive  bool
	ExpiresAt *time.Time
	LinkType  LinkType
}

// Expired reports whether the link has an expiry at or before now.
func (l *SharedPayoutLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

type Category struct {
	ID        string
	OwnerID   string
	Name      string
	Type      TransactionType
	SortOrder int
}

type Transaction struct {
	ID            string
	OwnerID       string
	Type          TransactionType
	Amount        decimal.Decimal
	Currency      string
	CategoryID    *string
	Description   string
	Date          time.Time
	IssuedTo      string
	AmountInWords string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
