package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// testWallet builds a default wallet with the given entries applied in order.
// Each entry is kind, amount, category.
func testWallet(t *testing.T, prefix string, entries ...[3]string) *model.Wallet {
	t.Helper()
	w := model.NewWallet()
	for i, e := range entries {
		amount, err := decimal.NewFromString(e[1])
		require.NoError(t, err)
		w.Apply(model.Transaction{
			ID:          prefix + "-" + string(rune('a'+i)),
			Kind:        model.TransactionKind(e[0]),
			Amount:      amount,
			Category:    e[2],
			Description: "entry " + e[1],
			Timestamp:   testTime.Add(time.Duration(i) * time.Hour),
		})
	}
	return w
}

func income(amount, category string) [3]string {
	return [3]string{string(model.KindIncome), amount, category}
}

func expense(amount, category string) [3]string {
	return [3]string{string(model.KindExpense), amount, category}
}

func TestSQLiteStorage_LoadMissingWalletIsDefault(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	w, err := store.LoadWallet(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Empty(t, w.Transactions)
	assert.Equal(t, model.DefaultCategoryNames, w.Categories.Names())
}

func TestSQLiteStorage_WalletRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	w := testWallet(t, "INC",
		income("1000", "Salary"),
		expense("95.50", "Food"),
		expense("12.35", "Transport"),
	)
	w.Categories.Put(model.Category{Name: "Pets", BudgetLimit: decimal.RequireFromString("50.00")})
	w.Categories.Put(model.Category{Name: "Food", BudgetLimit: decimal.RequireFromString("100")})

	require.NoError(t, store.SaveWallet(ctx, "alice", w))

	loaded, err := store.LoadWallet(ctx, "alice")
	require.NoError(t, err)

	assert.True(t, w.Balance.Equal(loaded.Balance), "balance %s != %s", w.Balance, loaded.Balance)
	assert.Equal(t, w.Categories.Names(), loaded.Categories.Names(), "category order must survive")
	require.Len(t, loaded.Transactions, 3)
	for i, txn := range w.Transactions {
		got := loaded.Transactions[i]
		assert.Equal(t, txn.ID, got.ID)
		assert.Equal(t, txn.Kind, got.Kind)
		assert.True(t, txn.Amount.Equal(got.Amount))
		assert.Equal(t, txn.Category, got.Category)
		assert.Equal(t, txn.Description, got.Description)
		assert.True(t, txn.Timestamp.Equal(got.Timestamp))
	}

	food, ok := loaded.Categories.Get("Food")
	require.True(t, ok)
	assert.Equal(t, "100", food.BudgetLimit.String())
}

func TestSQLiteStorage_SaveWalletReplaces(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveWallet(ctx, "alice", testWallet(t, "A", income("10", "Salary"), income("5", "Salary"))))
	require.NoError(t, store.SaveWallet(ctx, "alice", testWallet(t, "B", income("7", "Salary"))))

	loaded, err := store.LoadWallet(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, loaded.Transactions, 1)
	assert.Equal(t, "B-a", loaded.Transactions[0].ID)
	assert.Equal(t, "7", loaded.Balance.String())
}

func TestSQLiteStorage_SaveWalletRejectsInvalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	drifted := testWallet(t, "A", income("10", "Salary"))
	drifted.Balance = decimal.NewFromInt(11)

	dup := testWallet(t, "A", income("10", "Salary"))
	dup.Apply(dup.Transactions[0])

	tests := []struct {
		wallet *model.Wallet
		name   string
	}{
		{name: "nil wallet", wallet: nil},
		{name: "balance drift", wallet: drifted},
		{name: "duplicate id", wallet: dup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveWallet(ctx, "alice", tt.wallet)
			require.Error(t, err)
		})
	}

	loaded, err := store.LoadWallet(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, loaded.Transactions, "rejected saves must not write anything")
}

func TestSQLiteStorage_SaveTransfer(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	source := testWallet(t, "S", income("100", "Salary"), expense("30", model.TransfersCategory))
	target := testWallet(t, "T", income("30", model.TransfersCategory))
	record := model.TransferRecord{
		ID:          "tr-1",
		Source:      "alice",
		Target:      "bob",
		Amount:      decimal.NewFromInt(30),
		Description: "rent",
		CreatedAt:   testTime,
	}

	require.NoError(t, store.SaveTransfer(ctx, record, source, target))

	a, err := store.LoadWallet(ctx, "alice")
	require.NoError(t, err)
	b, err := store.LoadWallet(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "70", a.Balance.String())
	assert.Equal(t, "30", b.Balance.String())

	for _, user := range []string{"alice", "bob"} {
		history, err := store.Transfers(ctx, user)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "tr-1", history[0].ID)
		assert.Equal(t, "rent", history[0].Description)
		assert.True(t, history[0].CreatedAt.Equal(testTime))
	}

	none, err := store.Transfers(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStorage_SaveTransferIsAtomic(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	source := testWallet(t, "S", income("100", "Salary"), expense("30", model.TransfersCategory))
	target := testWallet(t, "T", income("30", model.TransfersCategory))
	record := model.TransferRecord{
		ID: "tr-1", Source: "alice", Target: "bob",
		Amount: decimal.NewFromInt(30), CreatedAt: testTime,
	}
	require.NoError(t, store.SaveTransfer(ctx, record, source, target))

	// Reusing the journal ID fails on the last insert, after both wallets were written.
	source2 := testWallet(t, "S2", income("500", "Salary"))
	target2 := testWallet(t, "T2", income("1", "Salary"))
	err := store.SaveTransfer(ctx, record, source2, target2)
	require.Error(t, err)

	a, err := store.LoadWallet(ctx, "alice")
	require.NoError(t, err)
	b, err := store.LoadWallet(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "70", a.Balance.String(), "source wallet must be rolled back")
	assert.Equal(t, "30", b.Balance.String(), "target wallet must be rolled back")
}

func TestSQLiteStorage_SaveTransferValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	w := model.NewWallet()

	tests := []struct {
		name   string
		record model.TransferRecord
	}{
		{name: "missing id", record: model.TransferRecord{Source: "a", Target: "b", Amount: decimal.NewFromInt(1)}},
		{name: "self", record: model.TransferRecord{ID: "x", Source: "a", Target: "a", Amount: decimal.NewFromInt(1)}},
		{name: "zero amount", record: model.TransferRecord{ID: "x", Source: "a", Target: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveTransfer(ctx, tt.record, w, w)
			assert.ErrorIs(t, err, ErrInvalidTransfer)
		})
	}
}

func TestSQLiteStorage_Users(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	alice := model.UserRecord{Username: "alice", PasswordHash: "hash-a", CreatedAt: testTime}
	bob := model.UserRecord{Username: "bob", PasswordHash: "hash-b", CreatedAt: testTime}
	require.NoError(t, store.SaveUsers(ctx, map[string]model.UserRecord{"alice": alice, "bob": bob}))

	alice.SecretQuestion = "pet?"
	alice.SecretAnswerHash = "hash-answer"
	require.NoError(t, store.SaveUser(ctx, alice))

	users, err := store.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "pet?", users["alice"].SecretQuestion)
	assert.True(t, users["alice"].HasSecretQuestion())
	assert.False(t, users["bob"].HasSecretQuestion())
	assert.True(t, users["bob"].CreatedAt.Equal(testTime))

	require.NoError(t, store.SaveUsers(ctx, map[string]model.UserRecord{"bob": bob}))
	users, err = store.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1, "SaveUsers replaces the registry")

	err = store.SaveUser(ctx, model.UserRecord{Username: "bad name", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestSQLiteStorage_CorruptedWallet(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveWallet(ctx, "alice", testWallet(t, "A", income("10", "Salary"))))
	_, err := store.db.ExecContext(ctx, `UPDATE wallets SET balance = '99' WHERE username = 'alice'`)
	require.NoError(t, err)

	_, err = store.LoadWallet(ctx, "alice")
	assert.ErrorIs(t, err, common.ErrDatabaseCorrupted)
}

func TestSQLiteStorage_WriteTextFile(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	path := filepath.Join(t.TempDir(), "out", "report.txt")
	require.NoError(t, store.WriteTextFile(context.Background(), path, "first"))
	require.NoError(t, store.WriteTextFile(context.Background(), path, "second"))
	assertFileContent(t, path, "second")
}

func TestSQLiteStorage_Backup(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveUser(ctx, model.UserRecord{Username: "alice", PasswordHash: "h", CreatedAt: testTime}))
	require.NoError(t, store.SaveWallet(ctx, "alice", testWallet(t, "A", income("10", "Salary"), expense("2", "Food"))))

	dest := filepath.Join(t.TempDir(), "backup.db")
	info, err := store.Backup(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Users)
	assert.Equal(t, 2, info.Transactions)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Positive(t, info.FileSize)

	copyStore, err := NewSQLiteStorage(dest)
	require.NoError(t, err)
	defer func() { _ = copyStore.Close() }()
	require.NoError(t, copyStore.Migrate(ctx))
	w, err := copyStore.LoadWallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "8", w.Balance.String())

	_, err = store.Backup(ctx, dest)
	assert.ErrorIs(t, err, ErrBackupExists)
}

func TestSQLiteStorage_DefaultBackupPath(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	path := store.DefaultBackupPath(testTime)
	assert.Equal(t, "purse-2024-03-01-090000.db", filepath.Base(path))
	assert.Equal(t, "backups", filepath.Base(filepath.Dir(path)))
}
