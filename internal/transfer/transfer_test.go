package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
	"github.com/Veraticus/purse/internal/testutil"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LoadWallet(ctx context.Context, username string) (*model.Wallet, error) {
	args := m.Called(ctx, username)
	w, _ := args.Get(0).(*model.Wallet)
	return w, args.Error(1)
}

func (m *mockStore) SaveWallet(ctx context.Context, username string, wallet *model.Wallet) error {
	return m.Called(ctx, username, wallet).Error(0)
}

func (m *mockStore) SaveTransfer(ctx context.Context, record model.TransferRecord, source, target *model.Wallet) error {
	return m.Called(ctx, record, source, target).Error(0)
}

type mapResolver map[string]*ledger.Book

func (r mapResolver) Resolve(_ context.Context, username string) (*ledger.Book, error) {
	if b, ok := r[username]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUserNotFound, username)
}

type captureNotifier struct {
	events []service.Event
}

func (n *captureNotifier) Notify(_ context.Context, e service.Event) error {
	n.events = append(n.events, e)
	return nil
}

var transferTime = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *mockStore
	coord    *Coordinator
	alice    *ledger.Book
	bob      *ledger.Book
	session  *ledger.Session
	notifier *captureNotifier
}

func newFixture(t *testing.T, aliceBalance string) *fixture {
	t.Helper()
	store := &mockStore{}

	aliceWallet := model.NewWallet()
	if aliceBalance != "0" {
		aliceWallet = testutil.NewWalletBuilder(t).WithIncome(aliceBalance, "Salary").Build()
	}

	alice := ledger.NewBook("alice", aliceWallet, store, nil)
	bob := ledger.NewBook("bob", nil, store, nil)
	notifier := &captureNotifier{}
	alice.SetNotifier(notifier)
	bob.SetNotifier(notifier)

	coord := NewCoordinator(mapResolver{"alice": alice, "bob": bob}, store)
	coord.newID = func() string { return "tr-1" }
	coord.now = func() time.Time { return transferTime }

	return &fixture{
		store:    store,
		coord:    coord,
		alice:    alice,
		bob:      bob,
		session:  ledger.NewSession(alice),
		notifier: notifier,
	}
}

func TestTransferMovesFunds(t *testing.T) {
	f := newFixture(t, "200")
	f.store.On("SaveTransfer", mock.Anything,
		mock.MatchedBy(func(r model.TransferRecord) bool {
			return r.ID == "tr-1" && r.Source == "alice" && r.Target == "bob" && r.Amount.Equal(testutil.Dec(t, "50"))
		}),
		mock.MatchedBy(func(w *model.Wallet) bool { return w.Balance.Equal(testutil.Dec(t, "150")) }),
		mock.MatchedBy(func(w *model.Wallet) bool { return w.Balance.Equal(testutil.Dec(t, "50")) }),
	).Return(nil).Once()

	receipt, err := f.coord.Transfer(context.Background(), f.session, "bob", testutil.Dec(t, "50"), "gift")
	require.NoError(t, err)
	f.store.AssertExpectations(t)

	alice := f.alice.Snapshot()
	bob := f.bob.Snapshot()
	assert.Equal(t, "150.00", model.FormatAmount(alice.Balance))
	assert.Equal(t, "50.00", model.FormatAmount(bob.Balance))
	assert.Equal(t, 1, alice.CountInCategory(model.TransfersCategory))
	assert.Equal(t, 1, bob.CountInCategory(model.TransfersCategory))

	assert.Equal(t, "Transfer to bob. gift", receipt.Expense.Description)
	assert.Equal(t, "Transfer from alice. gift", receipt.Income.Description)
	assert.Equal(t, model.KindExpense, receipt.Expense.Kind)
	assert.Equal(t, model.KindIncome, receipt.Income.Kind)
	assert.Equal(t, transferTime, receipt.Expense.Timestamp)
	assert.Equal(t, "tr-1", receipt.Record.ID)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, service.EventTransfer, f.notifier.events[0].Type)
	assert.Equal(t, "alice", f.notifier.events[0].Username)
	assert.Equal(t, "bob", f.notifier.events[1].Username)
}

func TestTransferWithoutDescription(t *testing.T) {
	f := newFixture(t, "10")
	f.store.On("SaveTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	receipt, err := f.coord.Transfer(context.Background(), f.session, "bob", testutil.Dec(t, "10"), "  ")
	require.NoError(t, err)
	assert.Equal(t, "Transfer to bob.", receipt.Expense.Description)
	assert.True(t, f.alice.Balance().IsZero())
}

func TestTransferFailures(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		target  string
		amount  string
	}{
		{name: "unknown target", target: "carol", amount: "10", wantErr: common.ErrUserNotFound},
		{name: "self transfer", target: "alice", amount: "10", wantErr: common.ErrSelfTransfer},
		{name: "zero amount", target: "bob", amount: "0", wantErr: common.ErrInvalidAmount},
		{name: "negative amount", target: "bob", amount: "-10", wantErr: common.ErrInvalidAmount},
		{name: "insufficient funds", target: "bob", amount: "200.01", wantErr: common.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "200")

			_, err := f.coord.Transfer(context.Background(), f.session, tt.target, testutil.Dec(t, tt.amount), "")
			require.ErrorIs(t, err, tt.wantErr)

			f.store.AssertNotCalled(t, "SaveTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, "200.00", model.FormatAmount(f.alice.Balance()))
			assert.True(t, f.bob.Balance().IsZero())
			assert.Empty(t, f.notifier.events)
		})
	}
}

func TestTransferRejectsMalformedTargetBeforeResolving(t *testing.T) {
	for _, target := range []string{"", "bob/../carol", "bob smith", "bob@example.com"} {
		t.Run(target, func(t *testing.T) {
			f := newFixture(t, "200")
			// Resolving would succeed, so only the name check can refuse it.
			f.coord.resolver = mapResolver{"alice": f.alice, target: f.bob}

			_, err := f.coord.Transfer(context.Background(), f.session, target, testutil.Dec(t, "10"), "")
			require.ErrorIs(t, err, common.ErrUserNotFound)

			f.store.AssertNotCalled(t, "SaveTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, "200.00", model.FormatAmount(f.alice.Balance()))
			assert.Empty(t, f.notifier.events)
		})
	}
}

func TestTransferPersistenceFailureLeavesBothWalletsUnchanged(t *testing.T) {
	f := newFixture(t, "200")
	f.store.On("SaveTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("disk full")).Once()

	_, err := f.coord.Transfer(context.Background(), f.session, "bob", testutil.Dec(t, "50"), "gift")
	require.Error(t, err)

	alice := f.alice.Snapshot()
	bob := f.bob.Snapshot()
	assert.Equal(t, "200.00", model.FormatAmount(alice.Balance))
	assert.Len(t, alice.Transactions, 1)
	assert.True(t, bob.Balance.IsZero())
	assert.Empty(t, bob.Transactions)
	assert.Empty(t, f.notifier.events)
}

func TestTransferRecreatesDeletedTransfersCategory(t *testing.T) {
	f := newFixture(t, "100")
	f.store.On("SaveWallet", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("SaveTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	_, err := f.bob.DeleteCategory(ctx, model.TransfersCategory)
	require.NoError(t, err)

	_, err = f.coord.Transfer(ctx, f.session, "bob", testutil.Dec(t, "25"), "")
	require.NoError(t, err)

	bob := f.bob.Snapshot()
	assert.True(t, bob.Categories.Has(model.TransfersCategory))
	assert.Equal(t, 1, bob.CountInCategory(model.TransfersCategory))
}

func TestTransferReportsRecipientAdvisories(t *testing.T) {
	f := newFixture(t, "200")
	bobWallet := testutil.NewWalletBuilder(t).
		WithIncome("100", "Salary").
		WithExpense("100", "Food").
		Build()
	f.bob = ledger.NewBook("bob", bobWallet, f.store, nil)
	f.bob.SetNotifier(f.notifier)
	f.coord.resolver = mapResolver{"alice": f.alice, "bob": f.bob}
	f.store.On("SaveTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	receipt, err := f.coord.Transfer(context.Background(), f.session, "bob", testutil.Dec(t, "50"), "")
	require.NoError(t, err)

	assert.True(t, model.HasAdvisory(receipt.TargetAdvisories, model.AdvisoryLowReserve),
		"got %v", model.Codes(receipt.TargetAdvisories))
	assert.False(t, model.HasAdvisory(receipt.Advisories, model.AdvisoryLowReserve))

	require.Len(t, f.notifier.events, 2)
	bobEvent := f.notifier.events[1]
	assert.Equal(t, "bob", bobEvent.Username)
	assert.Equal(t, receipt.TargetAdvisories, bobEvent.Advisories)
	assert.Equal(t, receipt.Advisories, f.notifier.events[0].Advisories)
}
