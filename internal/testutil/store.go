package testutil

import (
	"context"
	"sync"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

// MemoryStore is an in-memory service.PersistenceStore.
//
// The Fn fields override the default behavior, which lets tests inject failures.
// Wallets are cloned on the way in and out so callers never share state with the store.
type MemoryStore struct {
	SaveWalletFn   func(ctx context.Context, username string, wallet *model.Wallet) error
	SaveTransferFn func(ctx context.Context, record model.TransferRecord, source, target *model.Wallet) error
	Users          map[string]model.UserRecord
	Wallets        map[string]*model.Wallet
	Files          map[string]string
	Transfers      []model.TransferRecord
	calls          map[string]int
	mu             sync.Mutex
}

var _ service.PersistenceStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Users:   make(map[string]model.UserRecord),
		Wallets: make(map[string]*model.Wallet),
		Files:   make(map[string]string),
		calls:   make(map[string]int),
	}
}

// Calls returns how many times method was invoked.
func (m *MemoryStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MemoryStore) track(method string) {
	m.calls[method]++
}

// LoadUsers implements service.UserStore.
func (m *MemoryStore) LoadUsers(_ context.Context) (map[string]model.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("LoadUsers")

	out := make(map[string]model.UserRecord, len(m.Users))
	for k, v := range m.Users {
		out[k] = v
	}
	return out, nil
}

// SaveUsers implements service.UserStore.
func (m *MemoryStore) SaveUsers(_ context.Context, users map[string]model.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("SaveUsers")

	m.Users = make(map[string]model.UserRecord, len(users))
	for k, v := range users {
		m.Users[k] = v
	}
	return nil
}

// SaveUser implements service.UserStore.
func (m *MemoryStore) SaveUser(_ context.Context, user model.UserRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("SaveUser")

	m.Users[user.Username] = user
	return nil
}

// LoadWallet implements service.WalletStore.
func (m *MemoryStore) LoadWallet(_ context.Context, username string) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("LoadWallet")

	if w, ok := m.Wallets[username]; ok {
		return w.Clone(), nil
	}
	return model.NewWallet(), nil
}

// SaveWallet implements service.WalletStore.
func (m *MemoryStore) SaveWallet(ctx context.Context, username string, wallet *model.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("SaveWallet")

	if m.SaveWalletFn != nil {
		if err := m.SaveWalletFn(ctx, username, wallet); err != nil {
			return err
		}
	}
	m.Wallets[username] = wallet.Clone()
	return nil
}

// SaveTransfer implements service.WalletStore.
func (m *MemoryStore) SaveTransfer(ctx context.Context, record model.TransferRecord, source, target *model.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("SaveTransfer")

	if m.SaveTransferFn != nil {
		if err := m.SaveTransferFn(ctx, record, source, target); err != nil {
			return err
		}
	}
	m.Wallets[record.Source] = source.Clone()
	m.Wallets[record.Target] = target.Clone()
	m.Transfers = append(m.Transfers, record)
	return nil
}

// WriteTextFile implements service.TextWriter.
func (m *MemoryStore) WriteTextFile(_ context.Context, filename, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("WriteTextFile")

	m.Files[filename] = content
	return nil
}

// StoredWallet returns a copy of the persisted wallet, or nil.
func (m *MemoryStore) StoredWallet(username string) *model.Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.Wallets[username]; ok {
		return w.Clone()
	}
	return nil
}

// Close implements service.PersistenceStore.
func (m *MemoryStore) Close() error {
	return nil
}
