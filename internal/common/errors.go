// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Ledger errors. Every operation that returns one of these left its wallet untouched.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrDuplicateCategory   = errors.New("category already exists")
	ErrInvalidCategoryName = errors.New("invalid category name")
	ErrProtectedCategory   = errors.New("category is protected")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDateParse           = errors.New("invalid date")
)

// Identity and transfer errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongSecretAnswer  = errors.New("wrong secret answer")
	ErrNoSecretQuestion   = errors.New("no secret question set")
	ErrSelfTransfer       = errors.New("cannot transfer to yourself")
)

// Storage and configuration errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")
	ErrMissingConfig     = errors.New("missing configuration")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsLedgerError reports whether err is an expected, recoverable ledger outcome
// rather than an infrastructure failure.
func IsLedgerError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrCategoryNotFound, ErrDuplicateCategory,
		ErrInvalidCategoryName, ErrProtectedCategory, ErrInsufficientFunds,
		ErrDateParse, ErrUserNotFound, ErrSelfTransfer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
