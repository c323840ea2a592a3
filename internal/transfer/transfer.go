// Package transfer moves funds between two users' wallets as one atomic operation.
package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Resolver finds the book of a registered user.
type Resolver interface {
	// Resolve returns common.ErrUserNotFound for unknown usernames.
	Resolve(ctx context.Context, username string) (*ledger.Book, error)
}

// Receipt describes a completed transfer.
type Receipt struct {
	Record  model.TransferRecord
	Expense model.Transaction
	Income  model.Transaction
	// Advisories belong to the sender's wallet.
	Advisories []model.Advisory
	// TargetAdvisories belong to the recipient's wallet; they are sent to the
	// recipient's notifier, not shown to the sender.
	TargetAdvisories []model.Advisory
}

// Coordinator performs transfers. Both legs and the journal record are
// persisted in one SaveTransfer call; in-memory wallets change only after it succeeds.
type Coordinator struct {
	resolver Resolver
	store    service.WalletStore
	newID    func() string
	now      func() time.Time
}

// NewCoordinator creates a coordinator that persists through store.
func NewCoordinator(resolver Resolver, store service.WalletStore) *Coordinator {
	return &Coordinator{
		resolver: resolver,
		store:    store,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Transfer moves amount from the session's wallet to target.
func (c *Coordinator) Transfer(ctx context.Context, session *ledger.Session, target string, amount decimal.Decimal, description string) (Receipt, error) {
	target = strings.TrimSpace(target)
	if !common.IsValidUsername(target) {
		return Receipt{}, fmt.Errorf("%w: %q", common.ErrUserNotFound, target)
	}
	targetBook, err := c.resolver.Resolve(ctx, target)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to resolve %q: %w", target, err)
	}
	if targetBook.Username() == session.Username {
		return Receipt{}, common.ErrSelfTransfer
	}
	amount, err = ledger.NormalizeAmount(amount)
	if err != nil {
		return Receipt{}, err
	}

	now := model.Naive(c.now())
	description = strings.TrimSpace(description)
	record := model.TransferRecord{
		ID:          c.newID(),
		Source:      session.Username,
		Target:      target,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
	}

	var receipt Receipt
	apply := func(src, dst *model.Wallet) error {
		if src.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s, requested %s",
				common.ErrInsufficientFunds, model.FormatAmount(src.Balance), model.FormatAmount(amount))
		}
		ensureTransfersCategory(src)
		ensureTransfersCategory(dst)

		recorder := session.Book.Recorder()
		expense, advs, err := recorder.RecordAt(src, model.KindExpense, amount, model.TransfersCategory,
			composeDescription("Transfer to", target, description), now)
		if err != nil {
			return err
		}
		income, targetAdvs, err := targetBook.Recorder().RecordAt(dst, model.KindIncome, amount, model.TransfersCategory,
			composeDescription("Transfer from", session.Username, description), now)
		if err != nil {
			return err
		}

		receipt = Receipt{
			Record:           record,
			Expense:          expense,
			Income:           income,
			Advisories:       advs,
			TargetAdvisories: targetAdvs,
		}
		return nil
	}

	save := func(ctx context.Context, src, dst *model.Wallet) error {
		if err := c.store.SaveTransfer(ctx, record, src, dst); err != nil {
			common.LogError(err, "Failed to persist transfer", common.Fields{
				common.FieldTransfer: record.ID,
				common.FieldUser:     record.Source,
			})
			return fmt.Errorf("failed to save transfer %s: %w", record.ID, err)
		}
		return nil
	}

	if err := ledger.UpdatePair(ctx, session.Book, targetBook, apply, save); err != nil {
		return Receipt{}, err
	}

	common.LogInfo("Transfer completed", common.Fields{
		common.FieldTransfer: record.ID,
		common.FieldUser:     record.Source,
		"target":             record.Target,
		common.FieldAmount:   model.FormatAmount(amount),
	})

	event := service.Event{
		Type:       service.EventTransfer,
		Username:   record.Source,
		Transfer:   &record,
		Advisories: receipt.Advisories,
		Timestamp:  now,
	}
	session.Book.NotifyEvent(ctx, event)
	event.Username = record.Target
	event.Advisories = receipt.TargetAdvisories
	targetBook.NotifyEvent(ctx, event)

	return receipt, nil
}

func ensureTransfersCategory(w *model.Wallet) {
	if !w.Categories.Has(model.TransfersCategory) {
		w.Categories.Put(model.Category{Name: model.TransfersCategory})
	}
}

func composeDescription(prefix, counterpart, description string) string {
	text := prefix + " " + counterpart + "."
	if description != "" {
		text += " " + description
	}
	return text
}
