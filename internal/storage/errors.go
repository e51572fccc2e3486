package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/mertz1999/ai-money-tracker/internal/common"
)

// wrapStorageErr classifies a driver error into the application taxonomy.
// Lock contention becomes common.ErrContended, unique violations become
// common.ErrDuplicateEntry, and everything else is a common.ErrStorageFailure.
// Context errors pass through untouched.
func wrapStorageErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%s: %w: %w", msg, common.ErrContended, err)
		case sqlite3.ErrConstraint:
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
				return fmt.Errorf("%s: %w: %w", msg, common.ErrDuplicateEntry, err)
			}
		}
	}

	return fmt.Errorf("%s: %w: %w", msg, common.ErrStorageFailure, err)
}
