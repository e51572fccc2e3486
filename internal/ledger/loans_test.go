package ledger

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

func createCarLoan(t *testing.T, l *Ledger, owner int64, total string, isUSD bool) *model.Loan {
	t.Helper()
	loan, err := l.CreateLoan(context.Background(), CreateLoanRequest{
		OwnerID:        owner,
		Name:           "Car",
		TotalAmount:    dec(total),
		MonthlyPayment: dec("100"),
		IsUSD:          isUSD,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return loan
}

func payment(owner int64, loan *model.Loan, src *model.Source, amount string, isUSD bool) PaymentRequest {
	return PaymentRequest{
		OwnerID:  owner,
		LoanID:   loan.ID,
		SourceID: src.ID,
		Amount:   model.NewMoney(dec(amount), isUSD),
		Rate:     testRate,
	}
}

func TestCreateLoan(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	loan := createCarLoan(t, l, 1, "1200", true)
	assert.True(t, loan.RemainingAmount.Equal(dec("1200")))

	_, err := l.CreateLoan(ctx, CreateLoanRequest{OwnerID: 1, Name: "Bad", TotalAmount: decimal.Zero, MonthlyPayment: dec("1")})
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = l.CreateLoan(ctx, CreateLoanRequest{OwnerID: 1, Name: "", TotalAmount: dec("1"), MonthlyPayment: dec("1")})
	require.ErrorIs(t, err, common.ErrInvalidInput)

	before := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = l.CreateLoan(ctx, CreateLoanRequest{
		OwnerID: 1, Name: "Backwards", TotalAmount: dec("1"), MonthlyPayment: dec("1"),
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: &before,
	})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRecordPayment_Scenario(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Checking", true, "1000")
	loan := createCarLoan(t, l, 1, "1200", true)

	for i := 0; i < 2; i++ {
		p, err := l.RecordPayment(ctx, payment(1, loan, src, "100", true))
		require.NoError(t, err)
		assert.True(t, p.IsPaid())
		assert.Equal(t, "100", p.AmountUSD.String())
		assert.Equal(t, "Checking", p.SourceName)
	}

	got, err := l.GetLoan(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(dec("1000")))
	assertBalance(t, db, src.ID, "800")

	txns, err := l.GetTransactions(ctx, 1, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns, "payments without mirroring add no transaction rows")

	payments, err := l.GetLoanPayments(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestRecordPayment_MirrorDebitsOnce(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Wallet", false, "10000000")
	loan := createCarLoan(t, l, 1, "1200", true)

	req := payment(1, loan, src, "100", true)
	req.MirrorAsExpense = true
	p, err := l.RecordPayment(ctx, req)
	require.NoError(t, err)

	// 100 USD at 50000 comes out of the Toman wallet exactly once.
	assertBalance(t, db, src.ID, "5000000")

	txns, err := l.GetTransactions(ctx, 1, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	mirror := txns[0]
	assert.Equal(t, model.CategoryLoanPayment, mirror.CategoryName)
	assert.False(t, mirror.AffectsBalance)
	require.NotNil(t, mirror.LoanPaymentID)
	assert.Equal(t, p.ID, *mirror.LoanPaymentID)
	assert.Equal(t, "100", mirror.AmountUSD.String())

	// Editing or deleting the mirror never touches the balance.
	edit := expense(1, src, &model.Category{ID: mirror.CategoryID}, "150", true)
	_, err = l.UpdateTransaction(ctx, mirror.ID, edit)
	require.NoError(t, err)
	assertBalance(t, db, src.ID, "5000000")

	require.NoError(t, l.DeleteTransaction(ctx, 1, mirror.ID))
	assertBalance(t, db, src.ID, "5000000")
}

func TestRecordPayment_TomanPaymentOnUSDLoan(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Wallet", false, "10000000")
	loan := createCarLoan(t, l, 1, "1200", true)

	_, err := l.RecordPayment(ctx, payment(1, loan, src, "5000000", false))
	require.NoError(t, err)

	got, err := l.GetLoan(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(dec("1100")))
	assertBalance(t, db, src.ID, "5000000")
}

func TestRecordPayment_TomanLoan(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Bank", true, "1000")
	loan := createCarLoan(t, l, 1, "60000000", false)

	_, err := l.RecordPayment(ctx, payment(1, loan, src, "20", true))
	require.NoError(t, err)

	got, err := l.GetLoan(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(dec("59000000")))
	assertBalance(t, db, src.ID, "980")
}

func TestRecordPayment_ExactPayoffAtUnevenRates(t *testing.T) {
	for _, rate := range []string{"30000", "70000", "61234.5"} {
		t.Run(rate, func(t *testing.T) {
			l, db := newTestLedger(t)
			ctx := context.Background()

			wallet := db.MustCreateSource(1, "Wallet", false, "250000")
			loan := createCarLoan(t, l, 1, "100000", false)

			first := payment(1, loan, wallet, "40000", false)
			first.Rate = dec(rate)
			first.MirrorAsExpense = true
			_, err := l.RecordPayment(ctx, first)
			require.NoError(t, err)

			rest := payment(1, loan, wallet, "60000", false)
			rest.Rate = dec(rate)
			_, err = l.RecordPayment(ctx, rest)
			require.NoError(t, err)

			got, err := l.GetLoan(ctx, 1, loan.ID)
			require.NoError(t, err)
			assert.True(t, got.RemainingAmount.IsZero(), "remaining = %s", got.RemainingAmount)
			assertBalance(t, db, wallet.ID, "150000")

			txns, err := l.GetTransactions(ctx, 1, model.TransactionFilter{})
			require.NoError(t, err)
			require.Len(t, txns, 1)
			assert.True(t, txns[0].Amount.Equal(dec("40000")))
			assert.False(t, txns[0].IsUSD)

			_, err = l.RecordPayment(ctx, rest)
			require.ErrorIs(t, err, common.ErrLedgerInvariant)
		})
	}
}

func TestMarkPaymentPaid_ExactPayoffAtUnevenRate(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	wallet := db.MustCreateSource(1, "Wallet", false, "100000")
	loan := createCarLoan(t, l, 1, "100000", false)

	scheduled, err := l.SchedulePayment(ctx, payment(1, loan, wallet, "100000", false))
	require.NoError(t, err)

	paid, err := l.MarkPaymentPaid(ctx, 1, scheduled.ID, dec("70000"), false)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid())

	got, err := l.GetLoan(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.IsZero(), "remaining = %s", got.RemainingAmount)
	assertBalance(t, db, wallet.ID, "0")
}

func TestRecordPayment_Rejections(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Checking", true, "1000")
	theirs := db.MustCreateSource(2, "Theirs", true, "1000")
	loan := createCarLoan(t, l, 1, "150", true)

	_, err := l.RecordPayment(ctx, payment(1, loan, theirs, "10", true))
	require.ErrorIs(t, err, common.ErrOwnerMismatch)

	_, err = l.RecordPayment(ctx, payment(2, loan, theirs, "10", true))
	require.ErrorIs(t, err, common.ErrOwnerMismatch)

	_, err = l.RecordPayment(ctx, payment(1, &model.Loan{ID: 9999}, src, "10", true))
	require.ErrorIs(t, err, common.ErrLoanNotFound)

	_, err = l.RecordPayment(ctx, payment(1, loan, src, "0", true))
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	bad := payment(1, loan, src, "10", true)
	bad.Rate = decimal.Zero
	_, err = l.RecordPayment(ctx, bad)
	require.ErrorIs(t, err, common.ErrInvalidRate)

	_, err = l.RecordPayment(ctx, payment(1, loan, src, "100", true))
	require.NoError(t, err)

	// 100 more would take remaining to -50.
	_, err = l.RecordPayment(ctx, payment(1, loan, src, "100", true))
	require.ErrorIs(t, err, common.ErrLedgerInvariant)

	got, err := l.GetLoan(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(dec("50")))
	assertBalance(t, db, src.ID, "900")
	assertBalance(t, db, theirs.ID, "1000")

	payments, err := l.GetLoanPayments(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1, "rejected payment leaves no row")
}

func TestScheduleAndMarkPaid_DecrementsOnce(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Checking", true, "1000")
	loan := createCarLoan(t, l, 1, "1200", true)

	pending, err := l.SchedulePayment(ctx, payment(1, loan, src, "100", true))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, pending.Status)

	got, err := l.GetLoan(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(dec("1200")), "scheduling has no effect")
	assertBalance(t, db, src.ID, "1000")

	_, err = l.MarkPaymentPaid(ctx, 2, pending.ID, testRate, false)
	require.ErrorIs(t, err, common.ErrOwnerMismatch)

	paid, err := l.MarkPaymentPaid(ctx, 1, pending.ID, testRate, true)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid())
	assert.Equal(t, "50000", paid.RateAtPosting.String())

	_, err = l.MarkPaymentPaid(ctx, 1, pending.ID, testRate, true)
	require.ErrorIs(t, err, common.ErrAlreadyPaid)

	got, err = l.GetLoan(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(dec("1100")))
	assertBalance(t, db, src.ID, "900")

	txns, err := l.GetTransactions(ctx, 1, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	recorded, err := l.RecordPayment(ctx, payment(1, loan, src, "100", true))
	require.NoError(t, err)
	_, err = l.MarkPaymentPaid(ctx, 1, recorded.ID, testRate, false)
	require.ErrorIs(t, err, common.ErrAlreadyPaid, "recorded payments are already applied")

	_, err = l.MarkPaymentPaid(ctx, 1, 9999, testRate, false)
	require.ErrorIs(t, err, common.ErrPaymentNotFound)
}

func TestLoanInvariant_RemainingMatchesPaidPayments(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Checking", true, "100000")
	loan := createCarLoan(t, l, 1, "5000", true)

	amounts := []string{"100", "250.50", "75.25", "1000"}
	for _, a := range amounts {
		_, err := l.RecordPayment(ctx, payment(1, loan, src, a, true))
		require.NoError(t, err)
	}
	pending, err := l.SchedulePayment(ctx, payment(1, loan, src, "300", true))
	require.NoError(t, err)
	_, err = l.MarkPaymentPaid(ctx, 1, pending.ID, testRate, false)
	require.NoError(t, err)
	_, err = l.SchedulePayment(ctx, payment(1, loan, src, "999", true))
	require.NoError(t, err)

	payments, err := l.GetLoanPayments(ctx, 1, loan.ID)
	require.NoError(t, err)

	paidUSD := decimal.Zero
	for _, p := range payments {
		if p.IsPaid() {
			paidUSD = paidUSD.Add(p.AmountUSD)
		}
	}

	got, err := l.GetLoan(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingAmount.Equal(got.TotalAmount.Sub(paidUSD)))
	assert.True(t, got.RemainingAmount.Equal(dec("3274.25")))
}

func TestDeleteLoan_KeepsBalanceEffects(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Checking", true, "1000")
	loan := createCarLoan(t, l, 1, "1200", true)

	req := payment(1, loan, src, "100", true)
	req.MirrorAsExpense = true
	_, err := l.RecordPayment(ctx, req)
	require.NoError(t, err)
	assertBalance(t, db, src.ID, "900")

	require.ErrorIs(t, l.DeleteLoan(ctx, 2, loan.ID), common.ErrOwnerMismatch)
	require.NoError(t, l.DeleteLoan(ctx, 1, loan.ID))

	// Money already spent is not refunded.
	assertBalance(t, db, src.ID, "900")

	_, err = l.GetLoan(ctx, 1, loan.ID)
	require.ErrorIs(t, err, common.ErrLoanNotFound)

	txns, err := l.GetTransactions(ctx, 1, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Nil(t, txns[0].LoanPaymentID)
	assert.False(t, txns[0].AffectsBalance)

	require.ErrorIs(t, l.DeleteLoan(ctx, 1, loan.ID), common.ErrLoanNotFound)
}

func TestGetLoanSummary(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	src := db.MustCreateSource(1, "Checking", true, "1000")
	usdLoan := createCarLoan(t, l, 1, "1200", true)
	createCarLoan(t, l, 1, "50000000", false)
	createCarLoan(t, l, 2, "999", true)

	_, err := l.RecordPayment(ctx, payment(1, usdLoan, src, "200", true))
	require.NoError(t, err)

	summary, err := l.GetLoanSummary(ctx, 1, testRate)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalLoans)
	assert.Equal(t, "2200", summary.TotalBorrowed.String())
	assert.Equal(t, "2000", summary.TotalRemaining.String())
	// 100 USD and 100 Toman monthly.
	assert.Equal(t, "50.001", summary.AvgMonthlyPayment.String())

	empty, err := l.GetLoanSummary(ctx, 3, testRate)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalLoans)
	assert.True(t, empty.TotalRemaining.IsZero())

	_, err = l.GetLoanSummary(ctx, 1, decimal.Zero)
	require.ErrorIs(t, err, common.ErrInvalidRate)
}
