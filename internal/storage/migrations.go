package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mertz1999/ai-money-tracker/internal/model"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// Monetary columns are TEXT holding decimal strings so that balances and
// snapshot rates round-trip exactly.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS sources (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					is_bank BOOLEAN NOT NULL,
					is_usd BOOLEAN NOT NULL,
					balance TEXT NOT NULL DEFAULT '0',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(owner_id, name)
				)`,
				`CREATE INDEX idx_sources_owner ON sources(owner_id)`,

				`CREATE TABLE IF NOT EXISTS loans (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					total_amount TEXT NOT NULL,
					monthly_payment TEXT NOT NULL,
					interest_rate TEXT NOT NULL DEFAULT '0',
					start_date DATETIME NOT NULL,
					end_date DATETIME,
					remaining_amount TEXT NOT NULL,
					is_usd BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_loans_owner ON loans(owner_id)`,

				`CREATE TABLE IF NOT EXISTS loan_payments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id INTEGER NOT NULL,
					loan_id INTEGER NOT NULL,
					amount TEXT NOT NULL,
					is_usd BOOLEAN NOT NULL,
					amount_usd TEXT,
					rate_at_posting TEXT,
					payment_date DATETIME NOT NULL,
					source_id INTEGER NOT NULL,
					status TEXT NOT NULL CHECK (status IN ('pending', 'paid')),
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (loan_id) REFERENCES loans(id) ON DELETE CASCADE,
					FOREIGN KEY (source_id) REFERENCES sources(id)
				)`,
				`CREATE INDEX idx_loan_payments_loan ON loan_payments(loan_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					date DATETIME NOT NULL,
					amount_usd TEXT NOT NULL,
					rate_at_posting TEXT NOT NULL,
					is_deposit BOOLEAN NOT NULL,
					category_id INTEGER NOT NULL,
					source_id INTEGER NOT NULL,
					affects_balance BOOLEAN NOT NULL DEFAULT 1,
					loan_payment_id INTEGER,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (category_id) REFERENCES categories(id),
					FOREIGN KEY (source_id) REFERENCES sources(id),
					FOREIGN KEY (loan_payment_id) REFERENCES loan_payments(id) ON DELETE SET NULL
				)`,
				`CREATE INDEX idx_transactions_owner_date ON transactions(owner_id, date)`,
				`CREATE INDEX idx_transactions_source ON transactions(source_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed reserved categories",
		Up: func(tx *sql.Tx) error {
			for _, name := range []string{model.CategoryLoanPayment, model.CategoryOther, model.CategoryIncome} {
				if _, err := tx.Exec(`INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", name, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Track imported statement lines",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE transactions ADD COLUMN external_id TEXT`,
				`CREATE UNIQUE INDEX idx_transactions_external ON transactions(source_id, external_id)
					WHERE external_id IS NOT NULL`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Keep entered amount and currency on transactions",
		Up: func(tx *sql.Tx) error {
			// Older rows only knew their USD magnitude; recording them as USD keeps
			// their reversal on the same conversion path they were posted with.
			queries := []string{
				`ALTER TABLE transactions ADD COLUMN amount TEXT`,
				`ALTER TABLE transactions ADD COLUMN is_usd BOOLEAN NOT NULL DEFAULT 1`,
				`UPDATE transactions SET amount = amount_usd WHERE amount IS NULL`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
