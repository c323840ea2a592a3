// Package testutil provides test fixtures for purse: an in-memory store,
// a migrated SQLite database and a fluent wallet builder.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/storage"
)

// TestDB wraps a migrated in-memory SQLite database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
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

	return &TestDB{Storage: store, t: t}
}

// SeedWallet stores wallet for username or fails the test.
func (db *TestDB) SeedWallet(username string, wallet *model.Wallet) {
	db.t.Helper()
	if err := db.Storage.SaveWallet(context.Background(), username, wallet); err != nil {
		db.t.Fatalf("failed to seed wallet for %q: %v", username, err)
	}
}

// MustLoadWallet loads the wallet for username or fails the test.
func (db *TestDB) MustLoadWallet(username string) *model.Wallet {
	db.t.Helper()
	w, err := db.Storage.LoadWallet(context.Background(), username)
	if err != nil {
		db.t.Fatalf("failed to load wallet for %q: %v", username, err)
	}
	return w
}
