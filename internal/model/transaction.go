package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionDirection says whether a transaction credits or debits its source.
type TransactionDirection string

// Direction constants.
const (
	DirectionDeposit TransactionDirection = "deposit"
	DirectionExpense TransactionDirection = "expense"
)

// DirectionOf maps an is_deposit flag to a direction.
func DirectionOf(isDeposit bool) TransactionDirection {
	if isDeposit {
		return DirectionDeposit
	}
	return DirectionExpense
}

// Sign returns +1 for deposits and -1 for expenses.
func (d TransactionDirection) Sign() decimal.Decimal {
	if d == DirectionDeposit {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// Transaction is a categorized money movement recorded against one source.
//
// AmountUSD is always a non-negative USD magnitude; Direction carries the sign.
// Amount and IsUSD keep the magnitude as it was entered. RateAtPosting is the
// Toman-per-USD rate in force when the row was posted and is what any later
// reversal of this row must use.
type Transaction struct {
	Date          time.Time            `json:"date"`
	CreatedAt     time.Time            `json:"created_at"`
	Amount        decimal.Decimal      `json:"amount"`
	AmountUSD     decimal.Decimal      `json:"amount_usd"`
	RateAtPosting decimal.Decimal      `json:"rate_at_posting"`
	Name          string               `json:"name"`
	Direction     TransactionDirection `json:"direction"`
	CategoryName  string               `json:"category,omitempty"`
	SourceName    string               `json:"source,omitempty"`
	ExternalID    string               `json:"external_id,omitempty"`
	ID            int64                `json:"id"`
	CategoryID    int64                `json:"category_id"`
	SourceID      int64                `json:"source_id"`
	OwnerID       int64                `json:"owner_id"`
	IsUSD         bool                 `json:"is_usd"`
	// LoanPaymentID links a mirrored loan-payment expense to its payment.
	LoanPaymentID *int64 `json:"loan_payment_id,omitempty"`
	// AffectsBalance is false for rows recorded for reporting only, whose money
	// movement was already applied elsewhere (mirrored loan payments).
	AffectsBalance bool `json:"affects_balance"`
}

// IsDeposit reports whether the transaction is a credit.
func (t Transaction) IsDeposit() bool {
	return t.Direction == DirectionDeposit
}

// Money returns the amount as entered, with its currency.
func (t Transaction) Money() Money {
	return NewMoney(t.Amount, t.IsUSD)
}

// SignedUSD returns the USD amount with the direction applied.
func (t Transaction) SignedUSD() decimal.Decimal {
	return t.AmountUSD.Mul(t.Direction.Sign())
}

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	SourceID  *int64
	Limit     int
	Offset    int
}

// MonthFilter returns a filter covering one calendar month in UTC.
func MonthFilter(year int, month time.Month) TransactionFilter {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return TransactionFilter{StartDate: &start, EndDate: &end}
}
