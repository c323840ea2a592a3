package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

// FileStorage implements service.PersistenceStore with one JSON document per
// wallet. Layout under the data directory:
//
//	users.json           user registry
//	wallets/<user>.json  one wallet per user
//	journal/<id>.json    transfers being written
//	transfers/<id>.json  committed transfers
type FileStorage struct {
	// write replaces a file atomically; tests swap it to inject failures.
	write func(filename string, data []byte, perm os.FileMode) error
	dir   string
	mu    sync.Mutex
}

var _ service.PersistenceStore = (*FileStorage)(nil)

// NewFileStorage opens dir, creating it if needed, and rolls forward any
// transfer left in the journal by an interrupted run.
func NewFileStorage(ctx context.Context, dir string) (*FileStorage, error) {
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}
	for _, sub := range []string{"wallets", "journal", "transfers"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	s := &FileStorage{dir: dir, write: writeFileAtomic}
	if _, err := s.Recover(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close is a no-op; every write is flushed before it returns.
func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) usersPath() string {
	return filepath.Join(s.dir, "users.json")
}

func (s *FileStorage) walletPath(username string) (string, error) {
	if !common.IsValidUsername(username) {
		return "", fmt.Errorf("%w: username %q", ErrInvalidUser, username)
	}
	return filepath.Join(s.dir, "wallets", username+".json"), nil
}

func (s *FileStorage) journalPath(id string) string {
	return filepath.Join(s.dir, "journal", id+".json")
}

func (s *FileStorage) historyPath(id string) string {
	return filepath.Join(s.dir, "transfers", id+".json")
}

// LoadUsers reads the registry. A missing file is an empty registry.
func (s *FileStorage) LoadUsers(ctx context.Context) (map[string]model.UserRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsers()
}

func (s *FileStorage) loadUsers() (map[string]model.UserRecord, error) {
	data, err := os.ReadFile(s.usersPath())
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]model.UserRecord), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	users, err := DecodeUsers(data)
	if err != nil {
		return nil, fmt.Errorf("%w: users: %w", common.ErrDatabaseCorrupted, err)
	}
	return users, nil
}

// SaveUsers replaces the registry file.
func (s *FileStorage) SaveUsers(ctx context.Context, users map[string]model.UserRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for _, u := range users {
		if err := validateUser(u); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUsers(users)
}

func (s *FileStorage) saveUsers(users map[string]model.UserRecord) error {
	data, err := EncodeUsers(users)
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	return writeFileAtomic(s.usersPath(), data, 0600)
}

// SaveUser inserts or replaces one registry entry.
func (s *FileStorage) SaveUser(ctx context.Context, user model.UserRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	if existing, ok := users[user.Username]; ok && !existing.CreatedAt.IsZero() {
		user.CreatedAt = existing.CreatedAt
	}
	users[user.Username] = user
	return s.saveUsers(users)
}

// LoadWallet reads the wallet file for username, or returns a fresh default
// wallet when there is none. Legacy files are converted on read.
func (s *FileStorage) LoadWallet(ctx context.Context, username string) (*model.Wallet, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	path, err := s.walletPath(username)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewWallet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet for %s: %w", username, err)
	}
	w, err := DecodeWallet(data)
	if err != nil {
		return nil, corrupted(username, err)
	}
	return w, nil
}

// SaveWallet atomically replaces the wallet file for username.
func (s *FileStorage) SaveWallet(ctx context.Context, username string, wallet *model.Wallet) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateWallet(wallet); err != nil {
		return err
	}
	path, err := s.walletPath(username)
	if err != nil {
		return err
	}
	data, err := EncodeWallet(wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet for %s: %w", username, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save wallet for %s: %w", username, err)
	}

	slog.Debug("Saved wallet",
		common.FieldUser, username,
		common.FieldBalance, model.FormatAmount(wallet.Balance),
		"transactions", len(wallet.Transactions))
	return nil
}

// SaveTransfer writes both wallets through the journal. The journal entry is
// written first and moved to the transfer history once both wallet files are
// in place. A failed wallet write restores the previous files; if that also
// fails the journal entry stays behind for Recover to roll forward.
func (s *FileStorage) SaveTransfer(ctx context.Context, record model.TransferRecord, source, target *model.Wallet) error {
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
	sourcePath, err := s.walletPath(record.Source)
	if err != nil {
		return err
	}
	targetPath, err := s.walletPath(record.Target)
	if err != nil {
		return err
	}

	journal, err := encodeJournal(record, source, target)
	if err != nil {
		return fmt.Errorf("failed to encode transfer %s: %w", record.ID, err)
	}
	sourceData, err := EncodeWallet(source)
	if err != nil {
		return err
	}
	targetData, err := EncodeWallet(target)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevSource, err := snapshotFile(sourcePath)
	if err != nil {
		return err
	}
	prevTarget, err := snapshotFile(targetPath)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.journalPath(record.ID), journal, 0600); err != nil {
		return fmt.Errorf("failed to journal transfer %s: %w", record.ID, err)
	}

	writeErr := s.write(sourcePath, sourceData, 0600)
	if writeErr == nil {
		writeErr = s.write(targetPath, targetData, 0600)
	}
	if writeErr != nil {
		if err := errors.Join(prevSource.restore(), prevTarget.restore()); err != nil {
			common.LogError(err, "Failed to roll back transfer, journal kept for recovery", common.Fields{
				common.FieldTransfer: record.ID,
			})
			return fmt.Errorf("failed to save transfer %s: %w", record.ID, writeErr)
		}
		_ = os.Remove(s.journalPath(record.ID))
		return fmt.Errorf("failed to save transfer %s: %w", record.ID, writeErr)
	}

	if err := os.Rename(s.journalPath(record.ID), s.historyPath(record.ID)); err != nil {
		// Both wallets are written; Recover finishes the move.
		common.LogWarn("Failed to move journal entry to history", common.Fields{
			common.FieldTransfer: record.ID,
			"error":              err.Error(),
		})
	}
	return nil
}

// Recover rolls forward every transfer left in the journal and returns how
// many were replayed.
func (s *FileStorage) Recover(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "journal"))
	if err != nil {
		return 0, fmt.Errorf("failed to read journal: %w", err)
	}

	replayed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, "journal", entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return replayed, fmt.Errorf("failed to read journal entry %s: %w", entry.Name(), err)
		}
		record, source, target, err := decodeJournal(data)
		if err != nil {
			return replayed, fmt.Errorf("%w: journal entry %s: %w", common.ErrDatabaseCorrupted, entry.Name(), err)
		}
		if err := s.replay(record, source, target); err != nil {
			return replayed, err
		}
		if err := os.Rename(path, s.historyPath(record.ID)); err != nil {
			return replayed, fmt.Errorf("failed to archive journal entry %s: %w", record.ID, err)
		}
		common.LogWarn("Recovered interrupted transfer", common.Fields{
			common.FieldTransfer: record.ID,
			"source":             record.Source,
			"target":             record.Target,
		})
		replayed++
	}
	return replayed, nil
}

func (s *FileStorage) replay(record model.TransferRecord, source, target *model.Wallet) error {
	for _, leg := range []struct {
		wallet   *model.Wallet
		username string
	}{{source, record.Source}, {target, record.Target}} {
		path, err := s.walletPath(leg.username)
		if err != nil {
			return err
		}
		data, err := EncodeWallet(leg.wallet)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, data, 0600); err != nil {
			return fmt.Errorf("failed to replay transfer %s: %w", record.ID, err)
		}
	}
	return nil
}

// Transfers lists the committed transfers username took part in, oldest first.
func (s *FileStorage) Transfers(ctx context.Context, username string) ([]model.TransferRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "transfers"))
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer history: %w", err)
	}

	var out []model.TransferRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, "transfers", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read transfer %s: %w", entry.Name(), err)
		}
		record, _, _, err := decodeJournal(data)
		if err != nil {
			return nil, fmt.Errorf("%w: transfer %s: %w", common.ErrDatabaseCorrupted, entry.Name(), err)
		}
		if record.Source == username || record.Target == username {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// WriteTextFile writes an exported report. Files are replaced atomically.
func (s *FileStorage) WriteTextFile(ctx context.Context, filename, content string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(filename, "filename"); err != nil {
		return err
	}
	return writeFileAtomic(filename, []byte(content), 0644)
}

// fileSnapshot remembers a file's content so a failed write can be undone.
type fileSnapshot struct {
	path   string
	data   []byte
	exists bool
}

func snapshotFile(path string) (fileSnapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileSnapshot{path: path}, nil
	}
	if err != nil {
		return fileSnapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return fileSnapshot{path: path, data: data, exists: true}, nil
}

func (f fileSnapshot) restore() error {
	if !f.exists {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return writeFileAtomic(f.path, f.data, 0600)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			slog.Error("failed to remove temp file", "error", rmErr, "path", tmpName)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("failed to set permissions on %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return nil
}
