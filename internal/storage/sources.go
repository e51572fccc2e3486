package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

const sourceColumns = `id, owner_id, name, is_bank, is_usd, balance, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*model.Source, error) {
	var src model.Source
	if err := row.Scan(&src.ID, &src.OwnerID, &src.Name, &src.IsBank, &src.IsUSD, &src.Balance, &src.CreatedAt); err != nil {
		return nil, err
	}
	return &src, nil
}

// CreateSource inserts a new source and sets its ID. Names are unique per owner.
func (s *queries) CreateSource(ctx context.Context, source *model.Source) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSource(source); err != nil {
		return err
	}
	source.Name = strings.TrimSpace(source.Name)

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO sources (owner_id, name, is_bank, is_usd, balance)
		VALUES (?, ?, ?, ?, ?)`,
		source.OwnerID, source.Name, source.IsBank, source.IsUSD, source.Balance.String())
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to create source %q", source.Name))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return wrapStorageErr(err, "failed to get source id")
	}
	source.ID = id

	slog.Debug("created source", "id", id, "name", source.Name, "owner_id", source.OwnerID)
	return nil
}

// GetSource returns a source by id.
func (s *queries) GetSource(ctx context.Context, id int64) (*model.Source, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	src, err := scanSource(s.q.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", common.ErrSourceNotFound, id)
	}
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query source")
	}
	return src, nil
}

// GetSourceByName returns an owner's source by name.
func (s *queries) GetSourceByName(ctx context.Context, ownerID int64, name string) (*model.Source, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	src, err := scanSource(s.q.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE owner_id = ? AND name = ?`,
		ownerID, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", common.ErrSourceNotFound, name)
	}
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query source")
	}
	return src, nil
}

// GetSources returns all of an owner's sources ordered by name.
func (s *queries) GetSources(ctx context.Context, ownerID int64) ([]model.Source, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query sources")
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, wrapStorageErr(err, "failed to scan source")
		}
		sources = append(sources, *src)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorageErr(err, "error iterating sources")
	}

	return sources, nil
}

// SetSourceBalance overwrites a source's balance.
func (s *queries) SetSourceBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx,
		`UPDATE sources SET balance = ? WHERE id = ?`, balance.String(), id)
	if err != nil {
		return wrapStorageErr(err, "failed to update source balance")
	}

	return requireOneRow(result, common.ErrSourceNotFound, id)
}

// requireOneRow turns a zero-row write into the given not-found error.
func requireOneRow(result sql.Result, notFound error, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return wrapStorageErr(err, "failed to get rows affected")
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", notFound, id)
	}
	return nil
}
