// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/model"
)

// Queries is the row-level contract of the persistence layer. It is satisfied by
// the storage itself and by every open storage transaction, so the same code can
// run inside or outside an atomic unit.
//
// Getters return the entity regardless of owner; owner scoping is enforced by
// the ledger, which knows whether a mismatch is an error for the operation.
type Queries interface {
	// Category operations
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)

	// Source operations
	CreateSource(ctx context.Context, source *model.Source) error
	GetSource(ctx context.Context, id int64) (*model.Source, error)
	GetSourceByName(ctx context.Context, ownerID int64, name string) (*model.Source, error)
	GetSources(ctx context.Context, ownerID int64) ([]model.Source, error)
	SetSourceBalance(ctx context.Context, id int64, balance decimal.Decimal) error

	// Transaction operations
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransactions(ctx context.Context, ownerID int64, filter model.TransactionFilter) ([]model.Transaction, error)
	HasExternalID(ctx context.Context, sourceID int64, externalID string) (bool, error)

	// Loan operations
	InsertLoan(ctx context.Context, loan *model.Loan) error
	GetLoan(ctx context.Context, id int64) (*model.Loan, error)
	GetLoans(ctx context.Context, ownerID int64) ([]model.Loan, error)
	SetLoanRemaining(ctx context.Context, id int64, remaining decimal.Decimal) error
	DeleteLoan(ctx context.Context, id int64) error

	// Loan payment operations
	InsertLoanPayment(ctx context.Context, payment *model.LoanPayment) error
	GetLoanPayment(ctx context.Context, id int64) (*model.LoanPayment, error)
	GetLoanPayments(ctx context.Context, loanID int64) ([]model.LoanPayment, error)
	MarkLoanPaymentPaid(ctx context.Context, id int64, amountUSD, rate decimal.Decimal) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Queries

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. Nothing written through it is
// visible to other readers until Commit.
type Transaction interface {
	Queries
	Commit() error
	Rollback() error
}
