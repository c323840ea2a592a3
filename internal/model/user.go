package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRecord is an entry of the user registry. Secrets are stored as bcrypt hashes.
type UserRecord struct {
	CreatedAt        time.Time
	Username         string
	PasswordHash     string
	SecretQuestion   string
	SecretAnswerHash string
}

// HasSecretQuestion reports whether password reset is configured.
func (u UserRecord) HasSecretQuestion() bool {
	return u.SecretQuestion != "" && u.SecretAnswerHash != ""
}

// TransferRecord is the journal entry persisted together with both legs of a transfer.
type TransferRecord struct {
	CreatedAt   time.Time
	Amount      decimal.Decimal
	ID          string
	Source      string
	Target      string
	Description string
}
