// Package storage provides the data persistence layer for the money tracker.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

// Validation errors. All of them are common.ErrInvalidInput.
var (
	ErrNilContext         = fmt.Errorf("%w: context cannot be nil", common.ErrInvalidInput)
	ErrEmptyString        = fmt.Errorf("%w: string parameter cannot be empty", common.ErrInvalidInput)
	ErrNilParameter       = fmt.Errorf("%w: parameter cannot be nil", common.ErrInvalidInput)
	ErrInvalidSource      = fmt.Errorf("%w: invalid source", common.ErrInvalidInput)
	ErrInvalidTransaction = fmt.Errorf("%w: invalid transaction", common.ErrInvalidInput)
	ErrInvalidLoan        = fmt.Errorf("%w: invalid loan", common.ErrInvalidInput)
	ErrInvalidPayment     = fmt.Errorf("%w: invalid loan payment", common.ErrInvalidInput)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSource validates a source before insert.
func validateSource(source *model.Source) error {
	if source == nil {
		return fmt.Errorf("%w: source", ErrNilParameter)
	}
	if strings.TrimSpace(source.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSource)
	}
	if source.OwnerID <= 0 {
		return fmt.Errorf("%w: missing owner", ErrInvalidSource)
	}
	return nil
}

// validateTransaction validates a single transaction row.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTransaction)
	}
	if txn.OwnerID <= 0 || txn.SourceID <= 0 || txn.CategoryID <= 0 {
		return fmt.Errorf("%w: missing owner, source or category", ErrInvalidTransaction)
	}
	if txn.AmountUSD.IsNegative() || txn.Amount.IsNegative() {
		return fmt.Errorf("%w: amounts must be magnitudes", common.ErrInvalidAmount)
	}
	if !txn.RateAtPosting.IsPositive() {
		return fmt.Errorf("%w: rate_at_posting %s", common.ErrInvalidRate, txn.RateAtPosting)
	}
	switch txn.Direction {
	case model.DirectionDeposit, model.DirectionExpense:
	default:
		return fmt.Errorf("%w: direction %q", ErrInvalidTransaction, txn.Direction)
	}
	return nil
}

// validateLoan validates a loan before insert.
func validateLoan(loan *model.Loan) error {
	if loan == nil {
		return fmt.Errorf("%w: loan", ErrNilParameter)
	}
	if strings.TrimSpace(loan.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidLoan)
	}
	if loan.OwnerID <= 0 {
		return fmt.Errorf("%w: missing owner", ErrInvalidLoan)
	}
	if !loan.TotalAmount.IsPositive() || !loan.MonthlyPayment.IsPositive() {
		return fmt.Errorf("%w: loan amounts must be positive", common.ErrInvalidAmount)
	}
	return nil
}

// validatePayment validates a loan payment before insert.
func validatePayment(payment *model.LoanPayment) error {
	if payment == nil {
		return fmt.Errorf("%w: payment", ErrNilParameter)
	}
	if payment.LoanID <= 0 || payment.SourceID <= 0 || payment.OwnerID <= 0 {
		return fmt.Errorf("%w: missing loan, source or owner", ErrInvalidPayment)
	}
	if !payment.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", common.ErrInvalidAmount, payment.Amount)
	}
	switch payment.Status {
	case model.PaymentPending, model.PaymentPaid:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidPayment, payment.Status)
	}
	return nil
}
