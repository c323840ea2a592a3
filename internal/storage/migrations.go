package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// Money is stored as decimal TEXT and timestamps as zone-less TEXT so both
// round-trip exactly.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS users (
					username TEXT PRIMARY KEY,
					password_hash TEXT NOT NULL,
					secret_question TEXT NOT NULL DEFAULT '',
					secret_answer_hash TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS wallets (
					username TEXT PRIMARY KEY,
					balance TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS categories (
					username TEXT NOT NULL,
					name TEXT NOT NULL,
					budget_limit TEXT NOT NULL DEFAULT '0',
					position INTEGER NOT NULL,
					PRIMARY KEY (username, name),
					FOREIGN KEY (username) REFERENCES wallets(username) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_categories_position ON categories(username, position)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					username TEXT NOT NULL,
					id TEXT NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('INCOME', 'EXPENSE')),
					amount TEXT NOT NULL,
					category TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					occurred_at TEXT NOT NULL,
					position INTEGER NOT NULL,
					PRIMARY KEY (username, id),
					FOREIGN KEY (username) REFERENCES wallets(username) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_transactions_position ON transactions(username, position)`,
				`CREATE INDEX idx_transactions_category ON transactions(username, category)`,
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
		Description: "Add transfers journal",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transfers (
					id TEXT PRIMARY KEY,
					source TEXT NOT NULL,
					target TEXT NOT NULL,
					amount TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_transfers_source ON transfers(source)`,
				`CREATE INDEX idx_transfers_target ON transfers(target)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
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

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description,
			"path", s.dbPath)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
