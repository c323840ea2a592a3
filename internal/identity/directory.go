// Package identity owns the user registry: registration, password login,
// secret-question reset and the mapping from username to a shared ledger.Book.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/ledger"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
	"github.com/Veraticus/purse/internal/transfer"
)

// Minimum lengths for new credentials.
const (
	MinUsernameLength = 3
	MinPasswordLength = 3
)

// ErrEmptySecret is returned when a secret question or answer is blank.
var ErrEmptySecret = errors.New("secret question and answer are required")

// Store is the persistence the directory needs.
type Store interface {
	service.UserStore
	service.WalletStore
}

// Directory resolves usernames to books. It hands out one Book per username
// for its lifetime, so every session of a user shares the same lock.
type Directory struct {
	store    Store
	notifier service.Notifier
	recorder *ledger.Recorder
	books    map[string]*ledger.Book
	now      func() time.Time
	mu       sync.Mutex
}

var _ transfer.Resolver = (*Directory)(nil)

// NewDirectory creates a directory over store. notifier may be nil.
func NewDirectory(store Store, notifier service.Notifier) *Directory {
	return &Directory{
		store:    store,
		notifier: notifier,
		recorder: ledger.NewRecorder(),
		books:    make(map[string]*ledger.Book),
		now:      time.Now,
	}
}

// WithRecorder replaces the recorder given to new books.
func (d *Directory) WithRecorder(r *ledger.Recorder) *Directory {
	d.recorder = r
	return d
}

// ValidateUsername checks the username rules used at registration.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || !common.IsValidUsername(username) {
		return fmt.Errorf("%w: %q must be at least %d letters or digits",
			common.ErrInvalidUsername, username, MinUsernameLength)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: need at least %d characters", common.ErrWeakPassword, MinPasswordLength)
	}
	return nil
}

// Register creates a user with an empty default wallet.
func (d *Directory) Register(ctx context.Context, username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	if _, exists := users[username]; exists {
		return fmt.Errorf("%w: %s", common.ErrUserExists, username)
	}

	hash, err := common.HashSecret(password)
	if err != nil {
		return err
	}
	user := model.UserRecord{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    model.Naive(d.now()),
	}
	if err := d.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to save user %s: %w", username, err)
	}
	if err := d.store.SaveWallet(ctx, username, model.NewWallet()); err != nil {
		return fmt.Errorf("failed to create wallet for %s: %w", username, err)
	}

	common.LogInfo("User registered", common.Fields{common.FieldUser: username})
	return nil
}

// Authenticate checks the password and opens a session on the user's book.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (*ledger.Session, error) {
	user, err := d.lookup(ctx, username)
	if errors.Is(err, common.ErrUserNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := common.CompareSecret(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		common.LogDebug("Rejected login", common.Fields{common.FieldUser: username})
		return nil, common.ErrInvalidCredentials
	}

	book, err := d.book(ctx, username)
	if err != nil {
		return nil, err
	}
	return ledger.NewSession(book), nil
}

// Resolve returns the book of a registered user.
func (d *Directory) Resolve(ctx context.Context, username string) (*ledger.Book, error) {
	if _, err := d.lookup(ctx, username); err != nil {
		return nil, err
	}
	return d.book(ctx, username)
}

// Usernames lists registered users in sorted order.
func (d *Directory) Usernames(ctx context.Context) ([]string, error) {
	users, err := d.store.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// SetSecretQuestion stores the question and the hashed, normalized answer.
func (d *Directory) SetSecretQuestion(ctx context.Context, username, question, answer string) error {
	question = strings.TrimSpace(question)
	answer = common.NormalizeAnswer(answer)
	if question == "" || answer == "" {
		return ErrEmptySecret
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.lookup(ctx, username)
	if err != nil {
		return err
	}
	hash, err := common.HashSecret(answer)
	if err != nil {
		return err
	}
	user.SecretQuestion = question
	user.SecretAnswerHash = hash
	if err := d.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to save user %s: %w", username, err)
	}
	return nil
}

// SecretQuestion returns the question a user must answer to reset a password.
func (d *Directory) SecretQuestion(ctx context.Context, username string) (string, error) {
	user, err := d.lookup(ctx, username)
	if err != nil {
		return "", err
	}
	if !user.HasSecretQuestion() {
		return "", fmt.Errorf("%w for %s", common.ErrNoSecretQuestion, username)
	}
	return user.SecretQuestion, nil
}

// ResetPassword replaces the password after checking the secret answer.
func (d *Directory) ResetPassword(ctx context.Context, username, answer, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	user, err := d.lookup(ctx, username)
	if err != nil {
		return err
	}
	if !user.HasSecretQuestion() {
		return fmt.Errorf("%w for %s", common.ErrNoSecretQuestion, username)
	}
	ok, err := common.CompareSecret(user.SecretAnswerHash, common.NormalizeAnswer(answer))
	if err != nil {
		return err
	}
	if !ok {
		common.LogWarn("Wrong secret answer", common.Fields{common.FieldUser: username})
		return common.ErrWrongSecretAnswer
	}

	hash, err := common.HashSecret(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := d.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to save user %s: %w", username, err)
	}
	common.LogInfo("Password reset", common.Fields{common.FieldUser: username})
	return nil
}

func (d *Directory) lookup(ctx context.Context, username string) (model.UserRecord, error) {
	users, err := d.store.LoadUsers(ctx)
	if err != nil {
		return model.UserRecord{}, fmt.Errorf("failed to load users: %w", err)
	}
	user, ok := users[username]
	if !ok {
		return model.UserRecord{}, fmt.Errorf("%w: %s", common.ErrUserNotFound, username)
	}
	return user, nil
}

// book returns the cached book for username, loading its wallet on first use.
func (d *Directory) book(ctx context.Context, username string) (*ledger.Book, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.books[username]; ok {
		return b, nil
	}
	w, err := d.store.LoadWallet(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet for %s: %w", username, err)
	}
	b := ledger.NewBook(username, w, d.store, d.recorder)
	if d.notifier != nil {
		b.SetNotifier(d.notifier)
	}
	d.books[username] = b
	return b, nil
}
