package storage

import (
	"context"
	"testing"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	var version int
	if err := store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
	}

	// A second run is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}
}

func TestMigrate_CreatesTablesAndIndexes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, name := range []string{"users", "wallets", "categories", "transactions", "transfers"} {
		var count int
		err := store.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?
		`, name).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to check table %s: %v", name, err)
		}
		if count != 1 {
			t.Errorf("table %s was not created", name)
		}
	}

	var indexCount int
	err := store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name LIKE 'idx_transfers_%'
	`).Scan(&indexCount)
	if err != nil {
		t.Fatalf("Failed to check index: %v", err)
	}
	if indexCount == 0 {
		t.Error("transfer indexes were not created")
	}
}

func TestMigrate_VersionsAreSequential(t *testing.T) {
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration at index %d has version %d", i, m.Version)
		}
		if m.Description == "" {
			t.Errorf("migration %d has no description", m.Version)
		}
	}
	if last := migrations[len(migrations)-1].Version; last != ExpectedSchemaVersion {
		t.Errorf("last migration %d != ExpectedSchemaVersion %d", last, ExpectedSchemaVersion)
	}
}

func TestMigrate_CascadesOnWalletDelete(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveWallet(ctx, "alice", testWallet(t, "A", income("10", "Salary"))); err != nil {
		t.Fatalf("Failed to save wallet: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `DELETE FROM wallets WHERE username = 'alice'`); err != nil {
		t.Fatalf("Failed to delete wallet: %v", err)
	}

	var rows int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&rows); err != nil {
		t.Fatalf("Failed to count transactions: %v", err)
	}
	if rows != 0 {
		t.Errorf("transactions left after wallet delete: %d", rows)
	}
}
