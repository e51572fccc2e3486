package model

import "time"

// Reserved category names.
const (
	// CategoryLoanPayment tags the mirrored expense rows of loan payments.
	CategoryLoanPayment = "loan-payment"
	// CategoryOther is the fallback for unknown category names.
	CategoryOther = "other"
	// CategoryIncome is the default category for income postings.
	CategoryIncome = "income"
)

// Category is a shared, global label for transactions. Names are unique.
type Category struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
}
