package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
	"github.com/shopspring/decimal"
)

// errUnchanged lets a mutation finish successfully without persisting.
var errUnchanged = errors.New("wallet unchanged")

// Book is the mutex-guarded owner of one user's wallet.
//
// Every mutation runs against a clone; the clone is persisted and only then
// replaces the live wallet, so a failed save leaves memory as it was.
type Book struct {
	wallet   *model.Wallet
	store    service.WalletStore
	notifier service.Notifier
	recorder *Recorder
	username string
	mu       sync.Mutex
}

// NewBook binds username to wallet. A nil recorder uses NewRecorder.
func NewBook(username string, wallet *model.Wallet, store service.WalletStore, recorder *Recorder) *Book {
	if recorder == nil {
		recorder = NewRecorder()
	}
	if wallet == nil {
		wallet = model.NewWallet()
	}
	return &Book{
		username: username,
		wallet:   wallet,
		store:    store,
		recorder: recorder,
	}
}

// SetNotifier attaches a sink for advisories produced by mutations.
func (b *Book) SetNotifier(n service.Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifier = n
}

// Username returns the owner of the book.
func (b *Book) Username() string {
	return b.username
}

// Recorder returns the recorder used for new transactions.
func (b *Book) Recorder() *Recorder {
	return b.recorder
}

// Snapshot returns a copy of the wallet that is safe to read without locking.
func (b *Book) Snapshot() *model.Wallet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wallet.Clone()
}

// Balance returns the current balance.
func (b *Book) Balance() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wallet.Balance
}

// Update applies fn to a clone of the wallet and commits it when fn succeeds.
// Advisories from a committed change are forwarded to the notifier after the lock is released.
func (b *Book) Update(ctx context.Context, fn func(w *model.Wallet) ([]model.Advisory, error)) ([]model.Advisory, error) {
	advisories, notifier, err := b.commit(ctx, fn)
	if err != nil {
		return nil, err
	}
	if len(advisories) > 0 {
		b.deliver(ctx, notifier, service.Event{
			Type:       service.EventAdvisory,
			Username:   b.username,
			Advisories: advisories,
			Timestamp:  b.recorder.now(),
		})
	}
	return advisories, nil
}

func (b *Book) commit(ctx context.Context, fn func(w *model.Wallet) ([]model.Advisory, error)) ([]model.Advisory, service.Notifier, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	draft := b.wallet.Clone()
	advisories, err := fn(draft)
	if errors.Is(err, errUnchanged) {
		return advisories, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if err := b.store.SaveWallet(ctx, b.username, draft); err != nil {
		common.LogError(err, "Failed to save wallet", common.Fields{common.FieldUser: b.username})
		return nil, nil, fmt.Errorf("failed to save wallet for %s: %w", b.username, err)
	}
	b.wallet = draft
	return advisories, b.notifier, nil
}

// RecordIncome records income and persists the wallet.
func (b *Book) RecordIncome(ctx context.Context, amount decimal.Decimal, category, description string) (model.Transaction, []model.Advisory, error) {
	var txn model.Transaction
	advisories, err := b.Update(ctx, func(w *model.Wallet) ([]model.Advisory, error) {
		var advs []model.Advisory
		var err error
		txn, advs, err = b.recorder.RecordIncome(w, amount, category, description)
		return advs, err
	})
	if err != nil {
		return model.Transaction{}, nil, err
	}
	return txn, advisories, nil
}

// RecordExpense records an expense and persists the wallet.
func (b *Book) RecordExpense(ctx context.Context, amount decimal.Decimal, category, description string) (model.Transaction, []model.Advisory, error) {
	var txn model.Transaction
	advisories, err := b.Update(ctx, func(w *model.Wallet) ([]model.Advisory, error) {
		var advs []model.Advisory
		var err error
		txn, advs, err = b.recorder.RecordExpense(w, amount, category, description)
		return advs, err
	})
	if err != nil {
		return model.Transaction{}, nil, err
	}
	return txn, advisories, nil
}

// CreateCategory adds a category. It reports false when the name already exists.
func (b *Book) CreateCategory(ctx context.Context, name string, limit decimal.Decimal) (bool, error) {
	created := false
	_, err := b.Update(ctx, func(w *model.Wallet) ([]model.Advisory, error) {
		var err error
		created, err = CreateCategory(w, name, limit)
		if err == nil && !created {
			return nil, errUnchanged
		}
		return nil, err
	})
	return created, err
}

// SetBudgetLimit replaces the limit of a category.
func (b *Book) SetBudgetLimit(ctx context.Context, name string, limit decimal.Decimal) ([]model.Advisory, error) {
	return b.Update(ctx, func(w *model.Wallet) ([]model.Advisory, error) {
		return SetBudgetLimit(w, name, limit)
	})
}

// EditCategory renames a category and updates its limit.
func (b *Book) EditCategory(ctx context.Context, oldName, newName string, limit decimal.Decimal) (int, error) {
	renamed := 0
	_, err := b.Update(ctx, func(w *model.Wallet) ([]model.Advisory, error) {
		var err error
		renamed, err = EditCategory(w, oldName, newName, limit)
		return nil, err
	})
	return renamed, err
}

// DeleteCategory removes a category and reports how many transactions moved to the fallback.
func (b *Book) DeleteCategory(ctx context.Context, name string) (int, error) {
	moved := 0
	_, err := b.Update(ctx, func(w *model.Wallet) ([]model.Advisory, error) {
		var err error
		moved, err = DeleteCategory(w, name)
		if err != nil {
			return nil, err
		}
		return ReassignedAdvisory(name, moved), nil
	})
	return moved, err
}

func (b *Book) deliver(ctx context.Context, n service.Notifier, event service.Event) {
	if n == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := n.Notify(ctx, event); err != nil {
		common.LogWarn("Failed to deliver notification", common.Fields{
			common.FieldUser: b.username,
			"event":          string(event.Type),
			"error":          err.Error(),
		})
	}
}

// UpdatePair applies fn to clones of both wallets while holding both locks,
// commits them with save, and swaps both in only if save succeeds.
func UpdatePair(ctx context.Context, a, b *Book, fn func(wa, wb *model.Wallet) error, save func(ctx context.Context, wa, wb *model.Wallet) error) error {
	unlock := LockPair(a, b)
	defer unlock()

	draftA := a.wallet.Clone()
	draftB := b.wallet.Clone()
	if err := fn(draftA, draftB); err != nil {
		return err
	}
	if err := save(ctx, draftA, draftB); err != nil {
		return err
	}

	a.wallet = draftA
	b.wallet = draftB
	return nil
}

// LockPair locks two books in username order and returns the unlock function.
func LockPair(a, b *Book) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if second.username < first.username {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// NotifyEvent forwards a prebuilt event to the book's notifier, logging failures.
func (b *Book) NotifyEvent(ctx context.Context, event service.Event) {
	b.mu.Lock()
	n := b.notifier
	b.mu.Unlock()
	b.deliver(ctx, n, event)
}

// Session is the explicit per-call context that replaces a global current user.
type Session struct {
	Book     *Book
	Username string
}

// NewSession opens a session on book.
func NewSession(book *Book) *Session {
	return &Session{Username: book.Username(), Book: book}
}
