package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

const transactionSelect = `
	SELECT t.id, t.owner_id, t.name, t.date, t.amount, t.is_usd, t.amount_usd, t.rate_at_posting,
	       t.is_deposit, t.category_id, c.name, t.source_id, s.name,
	       t.affects_balance, t.loan_payment_id, t.external_id, t.created_at
	FROM transactions t
	JOIN categories c ON c.id = t.category_id
	JOIN sources s ON s.id = t.source_id`

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn           model.Transaction
		isDeposit     bool
		loanPaymentID sql.NullInt64
		externalID    sql.NullString
	)
	err := row.Scan(
		&txn.ID,
		&txn.OwnerID,
		&txn.Name,
		&txn.Date,
		&txn.Amount,
		&txn.IsUSD,
		&txn.AmountUSD,
		&txn.RateAtPosting,
		&isDeposit,
		&txn.CategoryID,
		&txn.CategoryName,
		&txn.SourceID,
		&txn.SourceName,
		&txn.AffectsBalance,
		&loanPaymentID,
		&externalID,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Date = txn.Date.UTC()
	txn.Direction = model.DirectionOf(isDeposit)
	if loanPaymentID.Valid {
		id := loanPaymentID.Int64
		txn.LoanPaymentID = &id
	}
	txn.ExternalID = externalID.String
	return &txn, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertTransaction stores a transaction row and sets its ID. It never touches
// source balances; the ledger applies balance effects in the same unit.
func (s *queries) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (
			owner_id, name, date, amount, is_usd, amount_usd, rate_at_posting, is_deposit,
			category_id, source_id, affects_balance, loan_payment_id, external_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.OwnerID,
		strings.TrimSpace(txn.Name),
		txn.Date.UTC(),
		txn.Amount.String(),
		txn.IsUSD,
		txn.AmountUSD.String(),
		txn.RateAtPosting.String(),
		txn.IsDeposit(),
		txn.CategoryID,
		txn.SourceID,
		txn.AffectsBalance,
		nullableID(txn.LoanPaymentID),
		nullableString(txn.ExternalID),
	)
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to insert transaction %q", txn.Name))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return wrapStorageErr(err, "failed to get transaction id")
	}
	txn.ID = id
	return nil
}

// GetTransaction returns a single transaction with its category and source names.
func (s *queries) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	txn, err := scanTransaction(s.q.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", common.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get transaction")
	}
	return txn, nil
}

// UpdateTransaction rewrites the mutable fields of a transaction row.
func (s *queries) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET name = ?, date = ?, amount = ?, is_usd = ?, amount_usd = ?,
		    rate_at_posting = ?, is_deposit = ?, category_id = ?, source_id = ?
		WHERE id = ?`,
		strings.TrimSpace(txn.Name),
		txn.Date.UTC(),
		txn.Amount.String(),
		txn.IsUSD,
		txn.AmountUSD.String(),
		txn.RateAtPosting.String(),
		txn.IsDeposit(),
		txn.CategoryID,
		txn.SourceID,
		txn.ID,
	)
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to update transaction %d", txn.ID))
	}

	return requireOneRow(result, common.ErrTransactionNotFound, txn.ID)
}

// DeleteTransaction removes a transaction row.
func (s *queries) DeleteTransaction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to delete transaction %d", id))
	}

	return requireOneRow(result, common.ErrTransactionNotFound, id)
}

// GetTransactions returns an owner's transactions, newest first. The date range
// is half-open: StartDate inclusive, EndDate exclusive.
func (s *queries) GetTransactions(ctx context.Context, ownerID int64, filter model.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := transactionSelect + ` WHERE t.owner_id = ?`
	args := []any{ownerID}

	if filter.StartDate != nil {
		query += " AND t.date >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query += " AND t.date < ?"
		args = append(args, filter.EndDate.UTC())
	}
	if filter.SourceID != nil {
		query += " AND t.source_id = ?"
		args = append(args, *filter.SourceID)
	}

	query += " ORDER BY t.date DESC, t.id DESC"

	// SQLite only accepts OFFSET after LIMIT; -1 means no limit.
	switch {
	case filter.Limit > 0:
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	case filter.Offset > 0:
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query transactions")
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, wrapStorageErr(err, "failed to scan transaction")
		}
		transactions = append(transactions, *txn)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapStorageErr(err, "error iterating transactions")
	}
	return transactions, nil
}

// HasExternalID reports whether a statement line was already imported into a source.
func (s *queries) HasExternalID(ctx context.Context, sourceID int64, externalID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return false, err
	}

	var exists bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM transactions WHERE source_id = ? AND external_id = ?)`,
		sourceID, externalID).Scan(&exists)
	if err != nil {
		return false, wrapStorageErr(err, "failed to check external id")
	}
	return exists, nil
}
