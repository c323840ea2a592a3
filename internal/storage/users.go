package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/purse/internal/model"
)

// LoadUsers returns the whole user registry.
func (s *SQLiteStorage) LoadUsers(ctx context.Context) (map[string]model.UserRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, secret_question, secret_answer_hash, created_at
		FROM users
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make(map[string]model.UserRecord)
	for rows.Next() {
		var u model.UserRecord
		var createdAt string
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.SecretQuestion, &u.SecretAnswerHash, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if u.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", u.Username, err)
		}
		users[u.Username] = u
	}
	return users, rows.Err()
}

// SaveUsers replaces the whole user registry.
func (s *SQLiteStorage) SaveUsers(ctx context.Context, users map[string]model.UserRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for _, u := range users {
		if err := validateUser(u); err != nil {
			return err
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}
		for _, u := range users {
			if err := upsertUser(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveUser inserts or replaces one registry entry.
func (s *SQLiteStorage) SaveUser(ctx context.Context, user model.UserRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}
	return upsertUser(ctx, s.db, user)
}

func upsertUser(ctx context.Context, q queryable, u model.UserRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, secret_question, secret_answer_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			password_hash = excluded.password_hash,
			secret_question = excluded.secret_question,
			secret_answer_hash = excluded.secret_answer_hash
	`, u.Username, u.PasswordHash, u.SecretQuestion, u.SecretAnswerHash, model.FormatTimestamp(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", u.Username, err)
	}
	return nil
}
