// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors. Rejected before any write.
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRate   = errors.New("invalid exchange rate")
	ErrOwnerMismatch = errors.New("entity belongs to a different owner")

	// Stale references.
	ErrNotFound            = errors.New("not found")
	ErrSourceNotFound      = fmt.Errorf("source %w", ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrLoanNotFound        = fmt.Errorf("loan %w", ErrNotFound)
	ErrPaymentNotFound     = fmt.Errorf("loan payment %w", ErrNotFound)

	// Database errors.
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrStorageFailure = errors.New("storage failure")
	ErrContended      = errors.New("entity busy, retry later")

	// Ledger state errors.
	ErrAlreadyPaid     = errors.New("loan payment already paid")
	ErrLedgerInvariant = errors.New("ledger invariant violation")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable reports whether a failed operation left no partial state and may be
// retried by the caller. Only contention qualifies; everything else needs the
// caller to change its input or is fatal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return errors.Is(err, ErrContended)
}

// IsInputError reports whether err was caused by caller-supplied input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidRate) ||
		errors.Is(err, ErrOwnerMismatch) ||
		errors.Is(err, ErrDuplicateEntry) ||
		errors.Is(err, ErrAlreadyPaid)
}
