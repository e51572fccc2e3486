package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

func createTestLoan(t *testing.T, store *SQLiteStorage, ownerID int64, total string) *model.Loan {
	t.Helper()
	loan := &model.Loan{
		OwnerID:         ownerID,
		Name:            "Car",
		TotalAmount:     decimal.RequireFromString(total),
		MonthlyPayment:  decimal.NewFromInt(100),
		InterestRate:    decimal.RequireFromString("4.5"),
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RemainingAmount: decimal.RequireFromString(total),
		IsUSD:           true,
	}
	require.NoError(t, store.InsertLoan(context.Background(), loan))
	return loan
}

func TestSQLiteStorage_Loans(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	loan := createTestLoan(t, store, 1, "1200")
	createTestLoan(t, store, 2, "500")

	got, err := store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Car", got.Name)
	assert.Equal(t, "4.5", got.InterestRate.String())
	assert.Nil(t, got.EndDate)
	assert.True(t, got.RemainingAmount.Equal(decimal.NewFromInt(1200)))

	loans, err := store.GetLoans(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, loans, 1)

	require.NoError(t, store.SetLoanRemaining(ctx, loan.ID, decimal.NewFromInt(1100)))
	got, err = store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(decimal.NewFromInt(1100)))

	_, err = store.GetLoan(ctx, 9999)
	require.ErrorIs(t, err, common.ErrLoanNotFound)

	err = store.InsertLoan(ctx, &model.Loan{OwnerID: 1, Name: "Bad", TotalAmount: decimal.Zero, MonthlyPayment: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestSQLiteStorage_LoanPayments(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	src := createTestSource(t, store, 1, "Checking", true, "1000")
	loan := createTestLoan(t, store, 1, "1200")

	pending := &model.LoanPayment{
		OwnerID:     1,
		LoanID:      loan.ID,
		Amount:      decimal.NewFromInt(100),
		IsUSD:       true,
		PaymentDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		SourceID:    src.ID,
		Status:      model.PaymentPending,
	}
	require.NoError(t, store.InsertLoanPayment(ctx, pending))

	got, err := store.GetLoanPayment(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, got.Status)
	assert.True(t, got.AmountUSD.IsZero())
	assert.True(t, got.RateAtPosting.IsZero())
	assert.Equal(t, "Checking", got.SourceName)

	require.NoError(t, store.MarkLoanPaymentPaid(ctx, pending.ID, decimal.NewFromInt(100), decimal.NewFromInt(50000)))

	got, err = store.GetLoanPayment(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid())
	assert.Equal(t, "100", got.AmountUSD.String())
	assert.Equal(t, "50000", got.RateAtPosting.String())

	err = store.MarkLoanPaymentPaid(ctx, pending.ID, decimal.NewFromInt(100), decimal.NewFromInt(50000))
	require.ErrorIs(t, err, common.ErrAlreadyPaid)

	err = store.MarkLoanPaymentPaid(ctx, 9999, decimal.NewFromInt(100), decimal.NewFromInt(50000))
	require.ErrorIs(t, err, common.ErrPaymentNotFound)

	payments, err := store.GetLoanPayments(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestSQLiteStorage_DeleteLoanCascades(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	src := createTestSource(t, store, 1, "Checking", true, "1000")
	loan := createTestLoan(t, store, 1, "1200")

	payment := &model.LoanPayment{
		OwnerID:       1,
		LoanID:        loan.ID,
		Amount:        decimal.NewFromInt(100),
		AmountUSD:     decimal.NewFromInt(100),
		RateAtPosting: decimal.NewFromInt(50000),
		IsUSD:         true,
		PaymentDate:   time.Now(),
		SourceID:      src.ID,
		Status:        model.PaymentPaid,
	}
	require.NoError(t, store.InsertLoanPayment(ctx, payment))

	cat, err := store.GetCategoryByName(ctx, model.CategoryLoanPayment)
	require.NoError(t, err)
	mirror := &model.Transaction{
		OwnerID:       1,
		Name:          "Loan payment",
		Date:          time.Now(),
		AmountUSD:     decimal.NewFromInt(100),
		RateAtPosting: decimal.NewFromInt(50000),
		Direction:     model.DirectionExpense,
		CategoryID:    cat.ID,
		SourceID:      src.ID,
		LoanPaymentID: &payment.ID,
	}
	require.NoError(t, store.InsertTransaction(ctx, mirror))

	require.NoError(t, store.DeleteLoan(ctx, loan.ID))

	_, err = store.GetLoanPayment(ctx, payment.ID)
	require.ErrorIs(t, err, common.ErrPaymentNotFound)

	kept, err := store.GetTransaction(ctx, mirror.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.LoanPaymentID)
	assert.False(t, kept.AffectsBalance)

	err = store.DeleteLoan(ctx, loan.ID)
	require.ErrorIs(t, err, common.ErrLoanNotFound)
}
