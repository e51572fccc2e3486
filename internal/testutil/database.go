// Package testutil provides test utilities for the money tracker.
// It offers migrated in-memory databases and small fixtures for ledger tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/model"
	"github.com/mertz1999/ai-money-tracker/internal/service"
	"github.com/mertz1999/ai-money-tracker/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	wallet := db.MustCreateSource(1, "Wallet", false, "1500000")
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustCreateSource creates a source with an opening balance or fails the test.
func (db *TestDB) MustCreateSource(ownerID int64, name string, isUSD bool, balance string) *model.Source {
	db.t.Helper()

	src := &model.Source{
		OwnerID: ownerID,
		Name:    name,
		IsBank:  true,
		IsUSD:   isUSD,
		Balance: decimal.RequireFromString(balance),
	}
	if err := db.Storage.CreateSource(context.Background(), src); err != nil {
		db.t.Fatalf("failed to create source %q: %v", name, err)
	}
	return src
}

// MustGetCategory returns the category with the given name or fails the test.
func (db *TestDB) MustGetCategory(name string) *model.Category {
	db.t.Helper()

	cat, err := db.Storage.CreateCategory(context.Background(), name)
	if err != nil {
		db.t.Fatalf("failed to get category %q: %v", name, err)
	}
	return cat
}

// Balance returns a source's current balance or fails the test.
func (db *TestDB) Balance(sourceID int64) decimal.Decimal {
	db.t.Helper()

	src, err := db.Storage.GetSource(context.Background(), sourceID)
	if err != nil {
		db.t.Fatalf("failed to get source %d: %v", sourceID, err)
	}
	return src.Balance
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
