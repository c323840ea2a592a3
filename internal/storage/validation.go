// Package storage provides the persistence backends for purse: SQLite and plain JSON files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidUser       = errors.New("invalid user record")
	ErrInvalidWallet     = errors.New("invalid wallet")
	ErrInvalidTransfer   = errors.New("invalid transfer record")
	ErrUnsupportedSchema = errors.New("unsupported wallet schema version")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateUser checks a registry entry before it is written.
func validateUser(user model.UserRecord) error {
	if !common.IsValidUsername(user.Username) {
		return fmt.Errorf("%w: username %q", ErrInvalidUser, user.Username)
	}
	if user.PasswordHash == "" {
		return fmt.Errorf("%w: missing password hash for %s", ErrInvalidUser, user.Username)
	}
	return nil
}

// validateWallet checks the invariants a stored wallet must satisfy.
func validateWallet(wallet *model.Wallet) error {
	if wallet == nil {
		return fmt.Errorf("%w: wallet", ErrNilParameter)
	}
	seen := make(map[string]struct{}, len(wallet.Transactions))
	for i, t := range wallet.Transactions {
		if t.ID == "" {
			return fmt.Errorf("%w: transaction at index %d has no ID", ErrInvalidWallet, i)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate transaction ID %s", ErrInvalidWallet, t.ID)
		}
		seen[t.ID] = struct{}{}
		if !t.Amount.IsPositive() {
			return fmt.Errorf("%w: transaction %s has non-positive amount", ErrInvalidWallet, t.ID)
		}
	}
	if err := wallet.VerifyBalance(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWallet, err)
	}
	return nil
}

// validateTransfer checks a journal record before it is written.
func validateTransfer(record model.TransferRecord) error {
	switch {
	case record.ID == "":
		return fmt.Errorf("%w: missing ID", ErrInvalidTransfer)
	case record.Source == "" || record.Target == "":
		return fmt.Errorf("%w: missing source or target", ErrInvalidTransfer)
	case record.Source == record.Target:
		return fmt.Errorf("%w: source equals target", ErrInvalidTransfer)
	case !record.Amount.IsPositive():
		return fmt.Errorf("%w: non-positive amount", ErrInvalidTransfer)
	}
	return nil
}

// corrupted marks a stored wallet that fails validation on load.
func corrupted(username string, err error) error {
	return fmt.Errorf("%w: wallet for %s: %w", common.ErrDatabaseCorrupted, username, err)
}
