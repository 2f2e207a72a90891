package domain

import (
	"fmt"
	"time"
)

// TransactionType is stored as a string with the encodings below; unknown
// strings fail decode.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// ParseTransactionType decodes a persisted transaction type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionIncome, TransactionExpense:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("domain: unknown transaction type %q", s)
}

func (t TransactionType) String() string { return string(t) }

// Transaction is a single logged income or expense entry. Amounts are in
// minor currency units (cents) to avoid float drift.
type Transaction struct {
	ID          string
	CategoryID  string
	AmountCents int64
	Description string
	Type        TransactionType
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	CategoryID string
	Type       TransactionType
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}
