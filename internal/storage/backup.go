package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backup errors.
var (
	ErrBackupExists    = errors.New("backup already exists")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
)

// BackupInfo describes a finished backup.
type BackupInfo struct {
	CreatedAt     time.Time
	Path          string
	FileSize      int64
	Users         int
	Transactions  int
	Transfers     int
	SchemaVersion int
}

// DefaultBackupPath names a timestamped backup next to the database file.
func (s *SQLiteStorage) DefaultBackupPath(now time.Time) string {
	dir := filepath.Join(filepath.Dir(s.dbPath), "backups")
	return filepath.Join(dir, fmt.Sprintf("purse-%s.db", now.Format("2006-01-02-150405")))
}

// Backup writes a consistent copy of the database to dest and verifies it.
func (s *SQLiteStorage) Backup(ctx context.Context, dest string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dest, "dest"); err != nil {
		return nil, err
	}

	dest, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup path: %w", err)
	}
	// The path ends up inside a SQL literal.
	if strings.ContainsAny(dest, `'";`) {
		return nil, fmt.Errorf("invalid backup path: contains forbidden characters")
	}
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupExists, dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	var schemaVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G201 - dest is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}

	if err := verifyIntegrity(ctx, dest); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			slog.Error("failed to remove corrupted backup", "error", rmErr, "path", dest)
		}
		return nil, fmt.Errorf("%w: %w", ErrBackupCorrupted, err)
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	info := &BackupInfo{
		CreatedAt:     time.Now(),
		Path:          dest,
		FileSize:      stat.Size(),
		SchemaVersion: schemaVersion,
	}
	counts := map[string]*int{
		"SELECT COUNT(*) FROM users":        &info.Users,
		"SELECT COUNT(*) FROM transactions": &info.Transactions,
		"SELECT COUNT(*) FROM transfers":    &info.Transfers,
	}
	for query, target := range counts {
		if err := s.db.QueryRowContext(ctx, query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	slog.Info("Database backup created",
		"path", dest,
		"size", info.FileSize,
		"schema_version", schemaVersion)
	return info, nil
}

func verifyIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
