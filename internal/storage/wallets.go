package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// LoadWallet returns the stored wallet for username, or a fresh default wallet
// when none has been saved yet.
func (s *SQLiteStorage) LoadWallet(ctx context.Context, username string) (*model.Wallet, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(username, "username"); err != nil {
		return nil, err
	}
	return s.loadWalletTx(ctx, s.db, username)
}

func (s *SQLiteStorage) loadWalletTx(ctx context.Context, q queryable, username string) (*model.Wallet, error) {
	var balance string
	err := q.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE username = ?`, username).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewWallet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet for %s: %w", username, err)
	}

	w := &model.Wallet{}
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, corrupted(username, err)
	}

	if err := loadCategories(ctx, q, username, w); err != nil {
		return nil, err
	}
	if err := loadTransactions(ctx, q, username, w); err != nil {
		return nil, err
	}
	if err := validateWallet(w); err != nil {
		return nil, corrupted(username, err)
	}
	return w, nil
}

func loadCategories(ctx context.Context, q queryable, username string, w *model.Wallet) error {
	rows, err := q.QueryContext(ctx, `
		SELECT name, budget_limit FROM categories
		WHERE username = ?
		ORDER BY position
	`, username)
	if err != nil {
		return fmt.Errorf("failed to query categories for %s: %w", username, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name, limit string
		if err := rows.Scan(&name, &limit); err != nil {
			return fmt.Errorf("failed to scan category: %w", err)
		}
		d, err := decimal.NewFromString(limit)
		if err != nil {
			return corrupted(username, err)
		}
		w.Categories.Put(model.Category{Name: name, BudgetLimit: d})
	}
	return rows.Err()
}

func loadTransactions(ctx context.Context, q queryable, username string, w *model.Wallet) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, kind, amount, category, description, occurred_at FROM transactions
		WHERE username = ?
		ORDER BY position
	`, username)
	if err != nil {
		return fmt.Errorf("failed to query transactions for %s: %w", username, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var t model.Transaction
		var kind, amount, occurredAt string
		if err := rows.Scan(&t.ID, &kind, &amount, &t.Category, &t.Description, &occurredAt); err != nil {
			return fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Kind, err = model.ParseKind(kind); err != nil {
			return corrupted(username, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return corrupted(username, err)
		}
		if t.Timestamp, err = model.ParseTimestamp(occurredAt); err != nil {
			return corrupted(username, err)
		}
		w.Transactions = append(w.Transactions, t)
	}
	return rows.Err()
}

// SaveWallet replaces the stored wallet for username.
func (s *SQLiteStorage) SaveWallet(ctx context.Context, username string, wallet *model.Wallet) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(username, "username"); err != nil {
		return err
	}
	if err := validateWallet(wallet); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveWalletTx(ctx, tx, username, wallet)
	})
}

func saveWalletTx(ctx context.Context, tx *sql.Tx, username string, w *model.Wallet) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (username, balance) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET
			balance = excluded.balance,
			updated_at = CURRENT_TIMESTAMP
	`, username, w.Balance.String())
	if err != nil {
		return fmt.Errorf("failed to save wallet for %s: %w", username, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE username = ?`, username); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	catStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO categories (username, name, budget_limit, position) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = catStmt.Close() }()

	for i, c := range w.Categories.All() {
		if _, err := catStmt.ExecContext(ctx, username, c.Name, c.BudgetLimit.String(), i); err != nil {
			return fmt.Errorf("failed to save category %q: %w", c.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE username = ?`, username); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	txnStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (username, id, kind, amount, category, description, occurred_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = txnStmt.Close() }()

	for i, t := range w.Transactions {
		_, err := txnStmt.ExecContext(ctx, username, t.ID, string(t.Kind), t.Amount.String(),
			t.Category, t.Description, model.FormatTimestamp(t.Timestamp), i)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", t.ID, err)
		}
	}

	slog.Debug("Saved wallet",
		common.FieldUser, username,
		common.FieldBalance, model.FormatAmount(w.Balance),
		"transactions", len(w.Transactions))
	return nil
}

// SaveTransfer stores both wallets and the transfer record in one database transaction.
func (s *SQLiteStorage) SaveTransfer(ctx context.Context, record model.TransferRecord, source, target *model.Wallet) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransfer(record); err != nil {
		return err
	}
	if err := validateWallet(source); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := validateWallet(target); err != nil {
		return fmt.Errorf("target: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := saveWalletTx(ctx, tx, record.Source, source); err != nil {
			return err
		}
		if err := saveWalletTx(ctx, tx, record.Target, target); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transfers (id, source, target, amount, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, record.ID, record.Source, record.Target, record.Amount.String(), record.Description,
			model.FormatTimestamp(record.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to record transfer %s: %w", record.ID, err)
		}
		return nil
	})
}

// Transfers lists the transfers username took part in, oldest first.
func (s *SQLiteStorage) Transfers(ctx context.Context, username string) ([]model.TransferRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, target, amount, description, created_at FROM transfers
		WHERE source = ? OR target = ?
		ORDER BY created_at, id
	`, username, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.TransferRecord
	for rows.Next() {
		var r model.TransferRecord
		var amount, createdAt string
		if err := rows.Scan(&r.ID, &r.Source, &r.Target, &amount, &r.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: transfer %s: %w", common.ErrDatabaseCorrupted, r.ID, err)
		}
		if r.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("%w: transfer %s: %w", common.ErrDatabaseCorrupted, r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
