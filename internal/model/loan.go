package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan is an installment loan. Amounts are denominated in the loan's own currency.
type Loan struct {
	StartDate       time.Time       `json:"start_date"`
	CreatedAt       time.Time       `json:"created_at"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	MonthlyPayment  decimal.Decimal `json:"monthly_payment"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Name            string          `json:"name"`
	ID              int64           `json:"id"`
	OwnerID         int64           `json:"owner_id"`
	IsUSD           bool            `json:"is_usd"`
}

// Currency returns the loan's denomination.
func (l Loan) Currency() Currency {
	return CurrencyOf(l.IsUSD)
}

// PaymentStatus is the lifecycle state of a loan payment. Pending -> Paid only.
type PaymentStatus string

// Payment states.
const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// LoanPayment is one installment against a loan, drawn from a source.
//
// AmountUSD and RateAtPosting are fixed when the payment is applied; they
// record exactly what was taken off the loan and out of the source.
type LoanPayment struct {
	PaymentDate   time.Time       `json:"payment_date"`
	CreatedAt     time.Time       `json:"created_at"`
	Amount        decimal.Decimal `json:"amount"`
	AmountUSD     decimal.Decimal `json:"amount_usd"`
	RateAtPosting decimal.Decimal `json:"rate_at_posting"`
	Status        PaymentStatus   `json:"status"`
	SourceName    string          `json:"source_name,omitempty"`
	ID            int64           `json:"id"`
	LoanID        int64           `json:"loan_id"`
	SourceID      int64           `json:"source_id"`
	OwnerID       int64           `json:"owner_id"`
	IsUSD         bool            `json:"is_usd"`
}

// IsPaid reports whether the payment has been applied.
func (p LoanPayment) IsPaid() bool {
	return p.Status == PaymentPaid
}

// Money returns the payment amount with its currency.
func (p LoanPayment) Money() Money {
	return NewMoney(p.Amount, p.IsUSD)
}

// LoanSummary aggregates an owner's loans.
type LoanSummary struct {
	TotalRemaining    decimal.Decimal `json:"total_remaining"`
	TotalBorrowed     decimal.Decimal `json:"total_borrowed"`
	AvgMonthlyPayment decimal.Decimal `json:"avg_monthly_payment"`
	TotalLoans        int             `json:"total_loans"`
}
