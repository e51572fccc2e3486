package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertz1999/ai-money-tracker/internal/model"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
	assert.Equal(t, len(migrations), version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestMigrate_CreatesLedgerTables(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	for _, table := range []string{"categories", "sources", "transactions", "loans", "loan_payments"} {
		var count int
		err := store.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}

	var indexCount int
	err := store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_transactions_external'
	`).Scan(&indexCount)
	require.NoError(t, err)
	assert.Equal(t, 1, indexCount)
}

func TestMigrate_ForeignKeysEnforced(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	var enabled int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestMigrate_BackfillsEnteredAmount(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	// Build a version 3 database by hand with one pre-existing row.
	for _, m := range migrations[:3] {
		tx, err := store.db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, m.Up(tx))
		_, err = tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version))
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	}
	_, err = store.db.Exec(`INSERT INTO sources (owner_id, name, is_bank, is_usd, balance) VALUES (1, 'Wallet', 0, 0, '0')`)
	require.NoError(t, err)
	_, err = store.db.Exec(`
		INSERT INTO transactions (owner_id, name, date, amount_usd, rate_at_posting, is_deposit, category_id, source_id)
		VALUES (1, 'Old', '2024-01-01 00:00:00', '2.5', '50000', 0,
		        (SELECT id FROM categories WHERE name = 'other'), 1)`)
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))

	txns, err := store.GetTransactions(ctx, 1, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].IsUSD)
	assert.True(t, decimal.RequireFromString("2.5").Equal(txns[0].Amount))
}
