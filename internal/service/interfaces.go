// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/purse/internal/model"
)

// UserStore persists the user registry.
type UserStore interface {
	LoadUsers(ctx context.Context) (map[string]model.UserRecord, error)
	SaveUsers(ctx context.Context, users map[string]model.UserRecord) error
	SaveUser(ctx context.Context, user model.UserRecord) error
}

// WalletStore persists wallets.
type WalletStore interface {
	// LoadWallet returns a fresh default wallet when none is stored for username.
	LoadWallet(ctx context.Context, username string) (*model.Wallet, error)
	SaveWallet(ctx context.Context, username string, wallet *model.Wallet) error
	// SaveTransfer stores both wallets and the journal record as one unit:
	// either all three are written or none are.
	SaveTransfer(ctx context.Context, record model.TransferRecord, source, target *model.Wallet) error
}

// TextWriter writes exported reports.
type TextWriter interface {
	// WriteTextFile writes content as UTF-8 to filename, replacing any existing file.
	WriteTextFile(ctx context.Context, filename, content string) error
}

// PersistenceStore defines the contract for our persistence layer.
type PersistenceStore interface {
	UserStore
	WalletStore
	TextWriter
	Close() error
}

// EventType classifies notifications.
type EventType string

// Notification event types.
const (
	EventAdvisory EventType = "advisory"
	EventTransfer EventType = "transfer"
)

// Event is what a Notifier receives after a successful ledger operation.
type Event struct {
	Timestamp  time.Time
	Transfer   *model.TransferRecord
	Type       EventType
	Username   string
	Advisories []model.Advisory
}

// Notifier delivers ledger events to an outside sink.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// RetryOptions configures retry behavior.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
