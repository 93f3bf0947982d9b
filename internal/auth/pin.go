// Package auth provides device-session authentication for money-moving
// endpoints: an account ID plus PIN is exchanged for a signed token whose
// claims gate which account a request may debit or credit.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/gkash-app/gkash/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid account or PIN")
	ErrWeakPIN            = errors.New("PIN must be at least 4 digits")
)

// AccountResolver is the slice of storage the authenticator needs.
type AccountResolver interface {
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
}

// PINAuthenticator verifies account PINs against their bcrypt hashes.
type PINAuthenticator struct {
	accounts AccountResolver
}

// NewPINAuthenticator creates a PIN-based authenticator.
func NewPINAuthenticator(accounts AccountResolver) *PINAuthenticator {
	return &PINAuthenticator{accounts: accounts}
}

// HashPIN returns the bcrypt hash of a PIN, for seeding accounts.
func HashPIN(pin string) (string, error) {
	if len(pin) < 4 {
		return "", ErrWeakPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hash), nil
}

// Authenticate verifies the account ID and PIN, returning the account if valid.
func (a *PINAuthenticator) Authenticate(ctx context.Context, accountID int64, pin string) (*models.Account, error) {
	account, err := a.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PINHash), []byte(pin)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}
