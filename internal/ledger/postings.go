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

// PostingRequest describes one money movement against a source.
//
// Rate is the Toman-per-USD rate in force now. It is required even when both
// the amount and the source are USD, since it is snapshotted on the row.
type PostingRequest struct {
	Date       time.Time
	Amount     model.Money
	Rate       decimal.Decimal
	Name       string
	ExternalID string
	OwnerID    int64
	SourceID   int64
	CategoryID int64
	IsDeposit  bool
}

func (r PostingRequest) validate() (decimal.Decimal, error) {
	if err := currency.ValidateAmount(r.Amount.Amount); err != nil {
		return decimal.Zero, err
	}
	if err := currency.ValidateRate(r.Rate); err != nil {
		return decimal.Zero, err
	}
	if err := requireName(r.Name); err != nil {
		return decimal.Zero, err
	}
	return currency.MoneyToUSD(r.Amount, r.Rate)
}

// PostTransaction records a transaction and applies its effect to the source
// balance in one unit.
func (l *Ledger) PostTransaction(ctx context.Context, req PostingRequest) (*model.Transaction, error) {
	amountUSD, err := req.validate()
	if err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		OwnerID:        req.OwnerID,
		Name:           strings.TrimSpace(req.Name),
		Date:           l.postingDate(req.Date),
		Amount:         req.Amount.Amount,
		IsUSD:          req.Amount.IsUSD,
		AmountUSD:      amountUSD,
		RateAtPosting:  req.Rate,
		Direction:      model.DirectionOf(req.IsDeposit),
		CategoryID:     req.CategoryID,
		SourceID:       req.SourceID,
		ExternalID:     req.ExternalID,
		AffectsBalance: true,
	}

	opID := newOpID()
	err = l.unit(ctx, "post_transaction", []string{sourceKey(req.SourceID)}, func(tx service.Transaction) error {
		src, err := ownedSource(ctx, tx, req.OwnerID, req.SourceID)
		if err != nil {
			return err
		}
		cat, err := tx.GetCategoryByID(ctx, req.CategoryID)
		if err != nil {
			return err
		}

		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		if err := applyDelta(ctx, tx, src, txn.Money(), txn.AmountUSD, txn.RateAtPosting, txn.Direction.Sign()); err != nil {
			return err
		}

		txn.CategoryName = cat.Name
		txn.SourceName = src.Name
		l.logger.Info("posted transaction",
			"op", "post_transaction",
			"op_id", opID,
			"owner_id", req.OwnerID,
			"source_id", src.ID,
			"transaction_id", txn.ID,
			"direction", txn.Direction,
			"amount_usd", txn.AmountUSD.String(),
			"balance", src.Balance.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// AddIncome posts a deposit.
func (l *Ledger) AddIncome(ctx context.Context, req PostingRequest) (*model.Transaction, error) {
	req.IsDeposit = true
	return l.PostTransaction(ctx, req)
}

// UpdateTransaction replaces a transaction's fields. The old effect is reversed
// with the rate it was posted at, then the new effect is applied with the new
// rate. Moving a transaction to another source reverses on the old one and
// applies on the new one inside the same unit. A zero Date keeps the existing
// date.
func (l *Ledger) UpdateTransaction(ctx context.Context, id int64, req PostingRequest) (*model.Transaction, error) {
	amountUSD, err := req.validate()
	if err != nil {
		return nil, err
	}

	// The current source is needed up front to know which locks to take.
	existing, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner("transaction", id, existing.OwnerID, req.OwnerID); err != nil {
		return nil, err
	}

	var updated *model.Transaction
	opID := newOpID()
	keys := []string{sourceKey(existing.SourceID), sourceKey(req.SourceID)}
	err = l.unit(ctx, "update_transaction", keys, func(tx service.Transaction) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.SourceID != existing.SourceID {
			return fmt.Errorf("%w: transaction %d moved while waiting", common.ErrContended, id)
		}

		cat, err := tx.GetCategoryByID(ctx, req.CategoryID)
		if err != nil {
			return err
		}

		newSrc, err := ownedSource(ctx, tx, req.OwnerID, req.SourceID)
		if err != nil {
			return err
		}
		oldSrc := newSrc
		if old.SourceID != newSrc.ID {
			if oldSrc, err = tx.GetSource(ctx, old.SourceID); err != nil {
				return err
			}
		}

		next := *old
		next.Name = strings.TrimSpace(req.Name)
		if !req.Date.IsZero() {
			next.Date = req.Date.UTC()
		}
		next.Amount = req.Amount.Amount
		next.IsUSD = req.Amount.IsUSD
		next.AmountUSD = amountUSD
		next.RateAtPosting = req.Rate
		next.Direction = model.DirectionOf(req.IsDeposit)
		next.CategoryID = cat.ID
		next.CategoryName = cat.Name
		next.SourceID = newSrc.ID
		next.SourceName = newSrc.Name

		if old.AffectsBalance {
			if err := applyDelta(ctx, tx, oldSrc, old.Money(), old.AmountUSD, old.RateAtPosting, old.Direction.Sign().Neg()); err != nil {
				return err
			}
		}
		if err := tx.UpdateTransaction(ctx, &next); err != nil {
			return err
		}
		if next.AffectsBalance {
			if err := applyDelta(ctx, tx, newSrc, next.Money(), next.AmountUSD, next.RateAtPosting, next.Direction.Sign()); err != nil {
				return err
			}
		}

		updated = &next
		l.logger.Info("updated transaction",
			"op", "update_transaction",
			"op_id", opID,
			"owner_id", req.OwnerID,
			"transaction_id", id,
			"old_source_id", oldSrc.ID,
			"source_id", newSrc.ID,
			"affects_balance", next.AffectsBalance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction reverses a transaction's effect at its snapshot rate and
// removes the row.
func (l *Ledger) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	existing, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := checkOwner("transaction", id, existing.OwnerID, ownerID); err != nil {
		return err
	}

	opID := newOpID()
	return l.unit(ctx, "delete_transaction", []string{sourceKey(existing.SourceID)}, func(tx service.Transaction) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.SourceID != existing.SourceID {
			return fmt.Errorf("%w: transaction %d moved while waiting", common.ErrContended, id)
		}

		if old.AffectsBalance {
			src, err := tx.GetSource(ctx, old.SourceID)
			if err != nil {
				return err
			}
			if err := applyDelta(ctx, tx, src, old.Money(), old.AmountUSD, old.RateAtPosting, old.Direction.Sign().Neg()); err != nil {
				return err
			}
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}

		l.logger.Info("deleted transaction",
			"op", "delete_transaction",
			"op_id", opID,
			"owner_id", ownerID,
			"transaction_id", id,
			"source_id", old.SourceID)
		return nil
	})
}

// GetTransaction returns one of the owner's transactions.
func (l *Ledger) GetTransaction(ctx context.Context, ownerID, id int64) (*model.Transaction, error) {
	txn, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner("transaction", id, txn.OwnerID, ownerID); err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransactions returns the owner's transactions matching filter, newest first.
func (l *Ledger) GetTransactions(ctx context.Context, ownerID int64, filter model.TransactionFilter) ([]model.Transaction, error) {
	return l.store.GetTransactions(ctx, ownerID, filter)
}

// GetMonthTransactions returns the owner's transactions in one calendar month.
func (l *Ledger) GetMonthTransactions(ctx context.Context, ownerID int64, year int, month time.Month) ([]model.Transaction, error) {
	return l.store.GetTransactions(ctx, ownerID, model.MonthFilter(year, month))
}
