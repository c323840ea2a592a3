package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{
			name:      "valid string",
			str:       "test",
			paramName: "param",
			wantErr:   false,
		},
		{
			name:      "empty string",
			str:       "",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			str:       "   ",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "string with spaces",
			str:       "  test  ",
			paramName: "param",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.paramName) {
				t.Errorf("validateString() error should contain param name %s, got %v", tt.paramName, err)
			}
		})
	}
}

func TestValidateUser(t *testing.T) {
	tests := []struct {
		name    string
		user    model.UserRecord
		wantErr bool
	}{
		{name: "valid", user: model.UserRecord{Username: "alice42", PasswordHash: "h"}},
		{name: "empty username", user: model.UserRecord{PasswordHash: "h"}, wantErr: true},
		{name: "username with space", user: model.UserRecord{Username: "al ice", PasswordHash: "h"}, wantErr: true},
		{name: "username with path", user: model.UserRecord{Username: "../etc", PasswordHash: "h"}, wantErr: true},
		{name: "missing hash", user: model.UserRecord{Username: "alice"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUser(tt.user)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUser)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWallet(t *testing.T) {
	valid := testWallet(t, "A", income("10", "Salary"), expense("4", "Food"))

	noID := testWallet(t, "A", income("10", "Salary"))
	noID.Transactions[0].ID = ""

	negative := model.NewWallet()
	negative.Apply(model.Transaction{ID: "x", Kind: model.KindIncome, Amount: decimal.NewFromInt(-5), Category: "Salary"})

	drift := testWallet(t, "A", income("10", "Salary"))
	drift.Balance = decimal.NewFromInt(3)

	tests := []struct {
		wallet  *model.Wallet
		name    string
		wantErr bool
	}{
		{name: "valid", wallet: valid},
		{name: "empty", wallet: model.NewWallet()},
		{name: "missing id", wallet: noID, wantErr: true},
		{name: "negative amount", wallet: negative, wantErr: true},
		{name: "balance drift", wallet: drift, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWallet(tt.wallet)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWallet)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.ErrorIs(t, validateWallet(nil), ErrNilParameter)
}

func TestValidateTransfer(t *testing.T) {
	base := model.TransferRecord{ID: "t1", Source: "alice", Target: "bob", Amount: decimal.NewFromInt(5)}

	assert.NoError(t, validateTransfer(base))

	missingTarget := base
	missingTarget.Target = ""
	assert.ErrorIs(t, validateTransfer(missingTarget), ErrInvalidTransfer)

	negative := base
	negative.Amount = decimal.NewFromInt(-1)
	assert.ErrorIs(t, validateTransfer(negative), ErrInvalidTransfer)
}
