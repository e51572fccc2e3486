package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

const loanColumns = `id, owner_id, name, total_amount, monthly_payment, interest_rate,
	start_date, end_date, remaining_amount, is_usd, created_at`

func scanLoan(row rowScanner) (*model.Loan, error) {
	var (
		loan    model.Loan
		endDate sql.NullTime
	)
	err := row.Scan(
		&loan.ID,
		&loan.OwnerID,
		&loan.Name,
		&loan.TotalAmount,
		&loan.MonthlyPayment,
		&loan.InterestRate,
		&loan.StartDate,
		&endDate,
		&loan.RemainingAmount,
		&loan.IsUSD,
		&loan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	loan.StartDate = loan.StartDate.UTC()
	if endDate.Valid {
		end := endDate.Time.UTC()
		loan.EndDate = &end
	}
	return &loan, nil
}

// InsertLoan stores a new loan and sets its ID.
func (s *queries) InsertLoan(ctx context.Context, loan *model.Loan) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLoan(loan); err != nil {
		return err
	}

	var endDate sql.NullTime
	if loan.EndDate != nil {
		endDate = sql.NullTime{Time: loan.EndDate.UTC(), Valid: true}
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO loans (
			owner_id, name, total_amount, monthly_payment, interest_rate,
			start_date, end_date, remaining_amount, is_usd
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.OwnerID,
		strings.TrimSpace(loan.Name),
		loan.TotalAmount.String(),
		loan.MonthlyPayment.String(),
		loan.InterestRate.String(),
		loan.StartDate.UTC(),
		endDate,
		loan.RemainingAmount.String(),
		loan.IsUSD,
	)
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to insert loan %q", loan.Name))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return wrapStorageErr(err, "failed to get loan id")
	}
	loan.ID = id
	return nil
}

// GetLoan returns a loan by id.
func (s *queries) GetLoan(ctx context.Context, id int64) (*model.Loan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	loan, err := scanLoan(s.q.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", common.ErrLoanNotFound, id)
	}
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get loan")
	}
	return loan, nil
}

// GetLoans returns all of an owner's loans ordered by start date.
func (s *queries) GetLoans(ctx context.Context, ownerID int64) ([]model.Loan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE owner_id = ? ORDER BY start_date, id`, ownerID)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query loans")
	}
	defer func() { _ = rows.Close() }()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, wrapStorageErr(err, "failed to scan loan")
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorageErr(err, "error iterating loans")
	}
	return loans, nil
}

// SetLoanRemaining overwrites a loan's remaining amount.
func (s *queries) SetLoanRemaining(ctx context.Context, id int64, remaining decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx,
		`UPDATE loans SET remaining_amount = ? WHERE id = ?`, remaining.String(), id)
	if err != nil {
		return wrapStorageErr(err, "failed to update loan remaining amount")
	}
	return requireOneRow(result, common.ErrLoanNotFound, id)
}

// DeleteLoan removes a loan. Its payments cascade; mirrored transactions lose
// their payment link but stay in place.
func (s *queries) DeleteLoan(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `DELETE FROM loans WHERE id = ?`, id)
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to delete loan %d", id))
	}
	return requireOneRow(result, common.ErrLoanNotFound, id)
}

const paymentSelect = `
	SELECT p.id, p.owner_id, p.loan_id, p.amount, p.is_usd, p.amount_usd,
	       p.rate_at_posting, p.payment_date, p.source_id, s.name, p.status, p.created_at
	FROM loan_payments p
	JOIN sources s ON s.id = p.source_id`

func scanPayment(row rowScanner) (*model.LoanPayment, error) {
	var (
		payment   model.LoanPayment
		amountUSD decimal.NullDecimal
		rate      decimal.NullDecimal
		status    string
	)
	err := row.Scan(
		&payment.ID,
		&payment.OwnerID,
		&payment.LoanID,
		&payment.Amount,
		&payment.IsUSD,
		&amountUSD,
		&rate,
		&payment.PaymentDate,
		&payment.SourceID,
		&payment.SourceName,
		&status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	payment.PaymentDate = payment.PaymentDate.UTC()
	payment.Status = model.PaymentStatus(status)
	if amountUSD.Valid {
		payment.AmountUSD = amountUSD.Decimal
	}
	if rate.Valid {
		payment.RateAtPosting = rate.Decimal
	}
	return &payment, nil
}

func nullableDecimal(d decimal.Decimal) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// InsertLoanPayment stores a payment row and sets its ID. Pending payments carry
// no USD amount or rate until they are applied.
func (s *queries) InsertLoanPayment(ctx context.Context, payment *model.LoanPayment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePayment(payment); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO loan_payments (
			owner_id, loan_id, amount, is_usd, amount_usd, rate_at_posting,
			payment_date, source_id, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.OwnerID,
		payment.LoanID,
		payment.Amount.String(),
		payment.IsUSD,
		nullableDecimal(payment.AmountUSD),
		nullableDecimal(payment.RateAtPosting),
		payment.PaymentDate.UTC(),
		payment.SourceID,
		string(payment.Status),
	)
	if err != nil {
		return wrapStorageErr(err, "failed to insert loan payment")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return wrapStorageErr(err, "failed to get loan payment id")
	}
	payment.ID = id
	return nil
}

// GetLoanPayment returns a payment by id with its source name.
func (s *queries) GetLoanPayment(ctx context.Context, id int64) (*model.LoanPayment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	payment, err := scanPayment(s.q.QueryRowContext(ctx, paymentSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", common.ErrPaymentNotFound, id)
	}
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get loan payment")
	}
	return payment, nil
}

// GetLoanPayments returns a loan's payments, newest first.
func (s *queries) GetLoanPayments(ctx context.Context, loanID int64) ([]model.LoanPayment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx,
		paymentSelect+` WHERE p.loan_id = ? ORDER BY p.payment_date DESC, p.id DESC`, loanID)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query loan payments")
	}
	defer func() { _ = rows.Close() }()

	var payments []model.LoanPayment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, wrapStorageErr(err, "failed to scan loan payment")
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorageErr(err, "error iterating loan payments")
	}
	return payments, nil
}

// MarkLoanPaymentPaid moves a pending payment to paid, recording the USD amount
// and rate it was applied at. A payment that is already paid is left untouched
// and reported as common.ErrAlreadyPaid.
func (s *queries) MarkLoanPaymentPaid(ctx context.Context, id int64, amountUSD, rate decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if !rate.IsPositive() {
		return fmt.Errorf("%w: %s", common.ErrInvalidRate, rate)
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE loan_payments
		SET status = ?, amount_usd = ?, rate_at_posting = ?
		WHERE id = ? AND status = ?`,
		string(model.PaymentPaid), amountUSD.String(), rate.String(), id, string(model.PaymentPending))
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to mark payment %d paid", id))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return wrapStorageErr(err, "failed to get rows affected")
	}
	if n > 0 {
		return nil
	}

	// Distinguish a missing payment from one that was already applied.
	if _, err := s.GetLoanPayment(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: payment %d", common.ErrAlreadyPaid, id)
}

