package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// SchemaVersion is the version written into every JSON document.
const SchemaVersion = 1

type walletDoc struct {
	Balance       json.Number      `json:"balance"`
	Categories    []categoryDoc    `json:"categories"`
	Transactions  []transactionDoc `json:"transactions"`
	SchemaVersion int              `json:"schema_version"`
}

type categoryDoc struct {
	Name        string      `json:"name"`
	BudgetLimit json.Number `json:"budget_limit"`
}

type transactionDoc struct {
	ID          string      `json:"id"`
	Kind        string      `json:"kind"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Timestamp   string      `json:"timestamp"`
}

// Unversioned layout written by earlier releases: categories keyed by name,
// float amounts, "type" and "date" fields.
type legacyWalletDoc struct {
	Categories   map[string]legacyCategoryDoc `json:"categories"`
	Balance      json.Number                  `json:"balance"`
	Transactions []legacyTransactionDoc       `json:"transactions"`
}

type legacyCategoryDoc struct {
	Name        string      `json:"name"`
	BudgetLimit json.Number `json:"budgetLimit"`
}

type legacyTransactionDoc struct {
	ID          string      `json:"id"`
	Amount      json.Number `json:"amount"`
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
}

type usersDoc struct {
	Users         []userDoc `json:"users"`
	SchemaVersion int       `json:"schema_version"`
}

type userDoc struct {
	Username         string `json:"username"`
	PasswordHash     string `json:"password_hash"`
	SecretQuestion   string `json:"secret_question,omitempty"`
	SecretAnswerHash string `json:"secret_answer_hash,omitempty"`
	CreatedAt        string `json:"created_at"`
}

type legacyUserDoc struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	SecretQuestion string `json:"secretQuestion"`
	SecretAnswer   string `json:"secretAnswer"`
}

type transferDoc struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	Target      string      `json:"target"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	CreatedAt   string      `json:"created_at"`
}

type journalDoc struct {
	Transfer      transferDoc `json:"transfer"`
	Source        walletDoc   `json:"source_wallet"`
	Target        walletDoc   `json:"target_wallet"`
	SchemaVersion int         `json:"schema_version"`
}

type versionProbe struct {
	SchemaVersion *int `json:"schema_version"`
}

// EncodeWallet renders w as pretty-printed versioned JSON.
func EncodeWallet(w *model.Wallet) ([]byte, error) {
	return json.MarshalIndent(toWalletDoc(w), "", "  ")
}

// DecodeWallet reads either the versioned layout or the legacy one.
// Empty input yields a fresh default wallet.
func DecodeWallet(data []byte) (*model.Wallet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return model.NewWallet(), nil
	}

	var probe versionProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse wallet: %w", err)
	}
	if probe.SchemaVersion == nil {
		return decodeLegacyWallet(data)
	}
	if *probe.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, *probe.SchemaVersion)
	}

	var doc walletDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse wallet: %w", err)
	}
	return fromWalletDoc(doc)
}

func toWalletDoc(w *model.Wallet) walletDoc {
	doc := walletDoc{
		SchemaVersion: SchemaVersion,
		Balance:       json.Number(w.Balance.String()),
		Categories:    make([]categoryDoc, 0, w.Categories.Len()),
		Transactions:  make([]transactionDoc, 0, len(w.Transactions)),
	}
	for _, c := range w.Categories.All() {
		doc.Categories = append(doc.Categories, categoryDoc{
			Name:        c.Name,
			BudgetLimit: json.Number(c.BudgetLimit.String()),
		})
	}
	for _, t := range w.Transactions {
		doc.Transactions = append(doc.Transactions, transactionDoc{
			ID:          t.ID,
			Kind:        string(t.Kind),
			Amount:      json.Number(t.Amount.String()),
			Category:    t.Category,
			Description: t.Description,
			Timestamp:   model.FormatTimestamp(t.Timestamp),
		})
	}
	return doc
}

func fromWalletDoc(doc walletDoc) (*model.Wallet, error) {
	w := &model.Wallet{}
	var err error
	if w.Balance, err = parseNumber(doc.Balance, "balance"); err != nil {
		return nil, err
	}
	for _, c := range doc.Categories {
		limit, err := parseNumber(c.BudgetLimit, "budget_limit")
		if err != nil {
			return nil, err
		}
		w.Categories.Put(model.Category{Name: c.Name, BudgetLimit: limit})
	}
	for _, td := range doc.Transactions {
		t := model.Transaction{ID: td.ID, Category: td.Category, Description: td.Description}
		if t.Kind, err = model.ParseKind(td.Kind); err != nil {
			return nil, err
		}
		if t.Amount, err = parseNumber(td.Amount, "amount"); err != nil {
			return nil, err
		}
		if t.Timestamp, err = model.ParseTimestamp(td.Timestamp); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", td.ID, err)
		}
		w.Transactions = append(w.Transactions, t)
	}
	if err := validateWallet(w); err != nil {
		return nil, err
	}
	return w, nil
}

func decodeLegacyWallet(data []byte) (*model.Wallet, error) {
	var doc legacyWalletDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse legacy wallet: %w", err)
	}

	w := &model.Wallet{}

	// Map order was never stable, so names are sorted to give a deterministic registry.
	names := make([]string, 0, len(doc.Categories))
	for key := range doc.Categories {
		names = append(names, key)
	}
	sort.Strings(names)
	for _, key := range names {
		c := doc.Categories[key]
		name := c.Name
		if name == "" {
			name = key
		}
		limit, err := parseNumber(c.BudgetLimit, "budgetLimit")
		if err != nil {
			return nil, err
		}
		w.Categories.Put(model.Category{Name: name, BudgetLimit: limit.Round(2)})
	}
	for _, name := range []string{model.TransfersCategory, model.FallbackCategory} {
		if !w.Categories.Has(name) {
			w.Categories.Put(model.Category{Name: name})
		}
	}

	for _, lt := range doc.Transactions {
		t := model.Transaction{ID: lt.ID, Category: lt.Category, Description: lt.Description}
		var err error
		if t.Kind, err = model.ParseKind(lt.Type); err != nil {
			return nil, err
		}
		if t.Amount, err = parseNumber(lt.Amount, "amount"); err != nil {
			return nil, err
		}
		t.Amount = t.Amount.Round(2)
		if t.Timestamp, err = model.ParseTimestamp(lt.Date); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", lt.ID, err)
		}
		w.Apply(t)
	}

	// Legacy balances were floats; the rebuilt balance is authoritative.
	if stored, err := parseNumber(doc.Balance, "balance"); err == nil && !stored.Round(2).Equal(w.Balance) {
		slog.Warn("Legacy wallet balance differs from its transactions",
			"stored", stored.String(),
			common.FieldBalance, model.FormatAmount(w.Balance))
	}

	if err := validateWallet(w); err != nil {
		return nil, err
	}
	return w, nil
}

// EncodeUsers renders the registry sorted by username.
func EncodeUsers(users map[string]model.UserRecord) ([]byte, error) {
	doc := usersDoc{SchemaVersion: SchemaVersion, Users: make([]userDoc, 0, len(users))}
	for _, u := range users {
		doc.Users = append(doc.Users, userDoc{
			Username:         u.Username,
			PasswordHash:     u.PasswordHash,
			SecretQuestion:   u.SecretQuestion,
			SecretAnswerHash: u.SecretAnswerHash,
			CreatedAt:        model.FormatTimestamp(u.CreatedAt),
		})
	}
	sort.Slice(doc.Users, func(i, j int) bool { return doc.Users[i].Username < doc.Users[j].Username })
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeUsers reads the versioned registry, or the legacy map whose plaintext
// passwords and answers are hashed on the way in.
func DecodeUsers(data []byte) (map[string]model.UserRecord, error) {
	users := make(map[string]model.UserRecord)
	if len(bytes.TrimSpace(data)) == 0 {
		return users, nil
	}

	var probe versionProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}
	if probe.SchemaVersion == nil {
		return decodeLegacyUsers(data)
	}
	if *probe.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, *probe.SchemaVersion)
	}

	var doc usersDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}
	for _, u := range doc.Users {
		created, err := model.ParseTimestamp(u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Username, err)
		}
		users[u.Username] = model.UserRecord{
			Username:         u.Username,
			PasswordHash:     u.PasswordHash,
			SecretQuestion:   u.SecretQuestion,
			SecretAnswerHash: u.SecretAnswerHash,
			CreatedAt:        created,
		}
	}
	return users, nil
}

func decodeLegacyUsers(data []byte) (map[string]model.UserRecord, error) {
	var legacy map[string]legacyUserDoc
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to parse legacy users: %w", err)
	}

	users := make(map[string]model.UserRecord, len(legacy))
	now := model.Naive(time.Now())
	for key, lu := range legacy {
		name := lu.Username
		if name == "" {
			name = key
		}
		hash, err := common.HashSecret(lu.Password)
		if err != nil {
			return nil, err
		}
		rec := model.UserRecord{Username: name, PasswordHash: hash, CreatedAt: now}
		if lu.SecretQuestion != "" && lu.SecretAnswer != "" {
			answer, err := common.HashSecret(common.NormalizeAnswer(lu.SecretAnswer))
			if err != nil {
				return nil, err
			}
			rec.SecretQuestion = lu.SecretQuestion
			rec.SecretAnswerHash = answer
		}
		users[name] = rec
	}
	return users, nil
}

func encodeJournal(record model.TransferRecord, source, target *model.Wallet) ([]byte, error) {
	return json.MarshalIndent(journalDoc{
		SchemaVersion: SchemaVersion,
		Transfer:      toTransferDoc(record),
		Source:        toWalletDoc(source),
		Target:        toWalletDoc(target),
	}, "", "  ")
}

func decodeJournal(data []byte) (model.TransferRecord, *model.Wallet, *model.Wallet, error) {
	var doc journalDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.TransferRecord{}, nil, nil, fmt.Errorf("failed to parse journal: %w", err)
	}
	if doc.SchemaVersion != SchemaVersion {
		return model.TransferRecord{}, nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, doc.SchemaVersion)
	}
	record, err := fromTransferDoc(doc.Transfer)
	if err != nil {
		return model.TransferRecord{}, nil, nil, err
	}
	source, err := fromWalletDoc(doc.Source)
	if err != nil {
		return model.TransferRecord{}, nil, nil, fmt.Errorf("source: %w", err)
	}
	target, err := fromWalletDoc(doc.Target)
	if err != nil {
		return model.TransferRecord{}, nil, nil, fmt.Errorf("target: %w", err)
	}
	return record, source, target, nil
}

func toTransferDoc(r model.TransferRecord) transferDoc {
	return transferDoc{
		ID:          r.ID,
		Source:      r.Source,
		Target:      r.Target,
		Amount:      json.Number(r.Amount.String()),
		Description: r.Description,
		CreatedAt:   model.FormatTimestamp(r.CreatedAt),
	}
}

func fromTransferDoc(d transferDoc) (model.TransferRecord, error) {
	amount, err := parseNumber(d.Amount, "amount")
	if err != nil {
		return model.TransferRecord{}, err
	}
	created, err := model.ParseTimestamp(d.CreatedAt)
	if err != nil {
		return model.TransferRecord{}, fmt.Errorf("transfer %s: %w", d.ID, err)
	}
	return model.TransferRecord{
		ID:          d.ID,
		Source:      d.Source,
		Target:      d.Target,
		Amount:      amount,
		Description: d.Description,
		CreatedAt:   created,
	}, nil
}

func parseNumber(n json.Number, field string) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, n, err)
	}
	return d, nil
}
