package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/currency"
	"github.com/mertz1999/ai-money-tracker/internal/model"
	"github.com/mertz1999/ai-money-tracker/internal/service"
)

// CreateLoanRequest describes a new installment loan. Amounts are in the loan's
// own currency.
type CreateLoanRequest struct {
	StartDate      time.Time
	EndDate        *time.Time
	TotalAmount    decimal.Decimal
	MonthlyPayment decimal.Decimal
	InterestRate   decimal.Decimal
	Name           string
	OwnerID        int64
	IsUSD          bool
}

// PaymentRequest describes one installment drawn from a source.
type PaymentRequest struct {
	Date            time.Time
	Amount          model.Money
	Rate            decimal.Decimal
	OwnerID         int64
	LoanID          int64
	SourceID        int64
	MirrorAsExpense bool
}

func (r PaymentRequest) validate() error {
	if err := currency.ValidateAmount(r.Amount.Amount); err != nil {
		return err
	}
	return currency.ValidateRate(r.Rate)
}

// CreateLoan records a loan with remaining_amount equal to its total.
func (l *Ledger) CreateLoan(ctx context.Context, req CreateLoanRequest) (*model.Loan, error) {
	if err := requireName(req.Name); err != nil {
		return nil, err
	}
	if err := currency.ValidateAmount(req.TotalAmount); err != nil {
		return nil, err
	}
	if err := currency.ValidateAmount(req.MonthlyPayment); err != nil {
		return nil, err
	}
	if req.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate %s", common.ErrInvalidAmount, req.InterestRate)
	}

	start := l.postingDate(req.StartDate)
	if req.EndDate != nil && req.EndDate.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", common.ErrInvalidInput)
	}

	loan := &model.Loan{
		OwnerID:         req.OwnerID,
		Name:            strings.TrimSpace(req.Name),
		TotalAmount:     req.TotalAmount,
		MonthlyPayment:  req.MonthlyPayment,
		InterestRate:    req.InterestRate,
		StartDate:       start,
		EndDate:         req.EndDate,
		RemainingAmount: req.TotalAmount,
		IsUSD:           req.IsUSD,
	}
	if err := l.store.InsertLoan(ctx, loan); err != nil {
		return nil, err
	}

	l.logger.Info("created loan",
		"op", "create_loan",
		"owner_id", loan.OwnerID,
		"loan_id", loan.ID,
		"total", loan.TotalAmount.String(),
		"currency", loan.Currency())
	return loan, nil
}

// RecordPayment records an already-paid installment: the payment row, the loan
// decrement, the source debit and, if asked, a balance-neutral mirrored expense
// all commit together.
func (l *Ledger) RecordPayment(ctx context.Context, req PaymentRequest) (*model.LoanPayment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	amountUSD, err := currency.MoneyToUSD(req.Amount, req.Rate)
	if err != nil {
		return nil, err
	}

	payment := &model.LoanPayment{
		OwnerID:       req.OwnerID,
		LoanID:        req.LoanID,
		SourceID:      req.SourceID,
		Amount:        req.Amount.Amount,
		IsUSD:         req.Amount.IsUSD,
		AmountUSD:     amountUSD,
		RateAtPosting: req.Rate,
		PaymentDate:   l.postingDate(req.Date),
		Status:        model.PaymentPaid,
	}

	opID := newOpID()
	keys := []string{loanKey(req.LoanID), sourceKey(req.SourceID)}
	err = l.unit(ctx, "record_payment", keys, func(tx service.Transaction) error {
		loan, err := ownedLoan(ctx, tx, req.OwnerID, req.LoanID)
		if err != nil {
			return err
		}
		src, err := ownedSource(ctx, tx, req.OwnerID, req.SourceID)
		if err != nil {
			return err
		}

		if err := tx.InsertLoanPayment(ctx, payment); err != nil {
			return err
		}
		payment.SourceName = src.Name
		return l.applyPayment(ctx, tx, opID, loan, src, payment, req.MirrorAsExpense)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// SchedulePayment records a pending installment. It has no balance effect until
// MarkPaymentPaid applies it.
func (l *Ledger) SchedulePayment(ctx context.Context, req PaymentRequest) (*model.LoanPayment, error) {
	if err := currency.ValidateAmount(req.Amount.Amount); err != nil {
		return nil, err
	}

	if _, err := ownedLoan(ctx, l.store, req.OwnerID, req.LoanID); err != nil {
		return nil, err
	}
	src, err := ownedSource(ctx, l.store, req.OwnerID, req.SourceID)
	if err != nil {
		return nil, err
	}

	payment := &model.LoanPayment{
		OwnerID:     req.OwnerID,
		LoanID:      req.LoanID,
		SourceID:    req.SourceID,
		SourceName:  src.Name,
		Amount:      req.Amount.Amount,
		IsUSD:       req.Amount.IsUSD,
		PaymentDate: l.postingDate(req.Date),
		Status:      model.PaymentPending,
	}
	if err := l.store.InsertLoanPayment(ctx, payment); err != nil {
		return nil, err
	}

	l.logger.Info("scheduled loan payment",
		"op", "schedule_payment",
		"owner_id", req.OwnerID,
		"loan_id", req.LoanID,
		"payment_id", payment.ID)
	return payment, nil
}

// MarkPaymentPaid applies a pending payment at rate. It is the only path for a
// pending payment; a payment that is already paid fails with
// common.ErrAlreadyPaid and changes nothing.
func (l *Ledger) MarkPaymentPaid(ctx context.Context, ownerID, paymentID int64, rate decimal.Decimal, mirrorAsExpense bool) (*model.LoanPayment, error) {
	if err := currency.ValidateRate(rate); err != nil {
		return nil, err
	}

	pending, err := l.store.GetLoanPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner("loan payment", paymentID, pending.OwnerID, ownerID); err != nil {
		return nil, err
	}
	if pending.IsPaid() {
		return nil, fmt.Errorf("%w: payment %d", common.ErrAlreadyPaid, paymentID)
	}

	var payment *model.LoanPayment
	opID := newOpID()
	keys := []string{loanKey(pending.LoanID), sourceKey(pending.SourceID)}
	err = l.unit(ctx, "mark_payment_paid", keys, func(tx service.Transaction) error {
		p, err := tx.GetLoanPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.IsPaid() {
			return fmt.Errorf("%w: payment %d", common.ErrAlreadyPaid, paymentID)
		}

		loan, err := tx.GetLoan(ctx, p.LoanID)
		if err != nil {
			return err
		}
		src, err := tx.GetSource(ctx, p.SourceID)
		if err != nil {
			return err
		}

		amountUSD, err := currency.ToUSD(p.Amount, p.IsUSD, rate)
		if err != nil {
			return err
		}
		if err := tx.MarkLoanPaymentPaid(ctx, p.ID, amountUSD, rate); err != nil {
			return err
		}
		p.Status = model.PaymentPaid
		p.AmountUSD = amountUSD
		p.RateAtPosting = rate

		if err := l.applyPayment(ctx, tx, opID, loan, src, p, mirrorAsExpense); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// applyPayment is the single leg function for a paid payment. It runs exactly
// once per payment: decrement the loan, debit the source, and optionally insert
// the mirrored expense with its balance effect suppressed. A leg in the
// payment's own currency moves the entered amount; only cross-currency legs
// convert at the snapshot rate.
func (l *Ledger) applyPayment(ctx context.Context, tx service.Transaction, opID string, loan *model.Loan, src *model.Source, p *model.LoanPayment, mirror bool) error {
	decrement, err := currency.Settle(p.Money(), p.AmountUSD, loan.IsUSD, p.RateAtPosting)
	if err != nil {
		return err
	}

	remaining := loan.RemainingAmount.Sub(decrement)
	if remaining.IsNegative() {
		InvariantViolations.Inc()
		l.logger.Error("loan payment exceeds remaining amount",
			"op_id", opID,
			"loan_id", loan.ID,
			"payment_id", p.ID,
			"remaining", loan.RemainingAmount.String(),
			"decrement", decrement.String())
		return fmt.Errorf("%w: loan %d remaining %s would drop below zero by %s",
			common.ErrLedgerInvariant, loan.ID, loan.RemainingAmount, remaining.Neg())
	}
	if err := tx.SetLoanRemaining(ctx, loan.ID, remaining); err != nil {
		return err
	}
	loan.RemainingAmount = remaining

	if err := applyDelta(ctx, tx, src, p.Money(), p.AmountUSD, p.RateAtPosting, decimal.NewFromInt(-1)); err != nil {
		return err
	}

	if mirror {
		cat, err := tx.GetCategoryByName(ctx, model.CategoryLoanPayment)
		if err != nil {
			return err
		}
		paymentID := p.ID
		expense := &model.Transaction{
			OwnerID:        p.OwnerID,
			Name:           fmt.Sprintf("Loan payment: %s", loan.Name),
			Date:           p.PaymentDate,
			Amount:         p.Amount,
			IsUSD:          p.IsUSD,
			AmountUSD:      p.AmountUSD,
			RateAtPosting:  p.RateAtPosting,
			Direction:      model.DirectionExpense,
			CategoryID:     cat.ID,
			SourceID:       src.ID,
			LoanPaymentID:  &paymentID,
			AffectsBalance: false,
		}
		if err := tx.InsertTransaction(ctx, expense); err != nil {
			return err
		}
	}

	l.logger.Info("applied loan payment",
		"op_id", opID,
		"owner_id", p.OwnerID,
		"loan_id", loan.ID,
		"payment_id", p.ID,
		"source_id", src.ID,
		"amount_usd", p.AmountUSD.String(),
		"remaining", remaining.String(),
		"mirrored", mirror)
	return nil
}

// DeleteLoan removes a loan and its payments. Balance effects of paid payments
// stay on their sources; money already spent is not refunded.
func (l *Ledger) DeleteLoan(ctx context.Context, ownerID, loanID int64) error {
	opID := newOpID()
	var paid int
	err := l.unit(ctx, "delete_loan", []string{loanKey(loanID)}, func(tx service.Transaction) error {
		if _, err := ownedLoan(ctx, tx, ownerID, loanID); err != nil {
			return err
		}
		payments, err := tx.GetLoanPayments(ctx, loanID)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if p.IsPaid() {
				paid++
			}
		}
		return tx.DeleteLoan(ctx, loanID)
	})
	if err != nil {
		return err
	}

	if paid > 0 {
		l.logger.Warn("deleted loan with paid payments; source balances not reversed",
			"op", "delete_loan",
			"op_id", opID,
			"owner_id", ownerID,
			"loan_id", loanID,
			"unreconciled_payments", paid)
	} else {
		l.logger.Info("deleted loan", "op", "delete_loan", "op_id", opID, "owner_id", ownerID, "loan_id", loanID)
	}
	return nil
}

// GetLoan returns one of the owner's loans.
func (l *Ledger) GetLoan(ctx context.Context, ownerID, loanID int64) (*model.Loan, error) {
	return ownedLoan(ctx, l.store, ownerID, loanID)
}

// GetLoans lists the owner's loans.
func (l *Ledger) GetLoans(ctx context.Context, ownerID int64) ([]model.Loan, error) {
	return l.store.GetLoans(ctx, ownerID)
}

// GetLoanPayments lists a loan's payments, each with its source name.
func (l *Ledger) GetLoanPayments(ctx context.Context, ownerID, loanID int64) ([]model.LoanPayment, error) {
	if _, err := ownedLoan(ctx, l.store, ownerID, loanID); err != nil {
		return nil, err
	}
	return l.store.GetLoanPayments(ctx, loanID)
}

// GetLoanSummary aggregates the owner's loans in USD, converting Toman loans at rate.
func (l *Ledger) GetLoanSummary(ctx context.Context, ownerID int64, rate decimal.Decimal) (*model.LoanSummary, error) {
	if err := currency.ValidateRate(rate); err != nil {
		return nil, err
	}

	loans, err := l.store.GetLoans(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	summary := &model.LoanSummary{TotalLoans: len(loans)}
	monthly := decimal.Zero
	for _, loan := range loans {
		remaining, err := currency.ToUSD(loan.RemainingAmount, loan.IsUSD, rate)
		if err != nil {
			return nil, err
		}
		total, err := currency.ToUSD(loan.TotalAmount, loan.IsUSD, rate)
		if err != nil {
			return nil, err
		}
		payment, err := currency.ToUSD(loan.MonthlyPayment, loan.IsUSD, rate)
		if err != nil {
			return nil, err
		}
		summary.TotalRemaining = summary.TotalRemaining.Add(remaining)
		summary.TotalBorrowed = summary.TotalBorrowed.Add(total)
		monthly = monthly.Add(payment)
	}
	if len(loans) > 0 {
		summary.AvgMonthlyPayment = monthly.Div(decimal.NewFromInt(int64(len(loans))))
	}
	return summary, nil
}
