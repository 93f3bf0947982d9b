// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
)

// Store defines the interface for account and transaction persistence.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the ledger.
type Store interface {
	// CreateAccount persists a new account. The account.ID must be set by
	// the caller (accounts are seeded, not user-created).
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccount retrieves an account by ID.
	// Returns models.ErrAccountNotFound when no such account exists.
	GetAccount(ctx context.Context, id int64) (*models.Account, error)

	// GetAccountByRole retrieves the first account carrying the given role.
	GetAccountByRole(ctx context.Context, role models.Role) (*models.Account, error)

	// ListAccounts retrieves all accounts, ordered by ID.
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	// Deposit atomically credits amount to the account and returns the
	// updated account. No transaction record is created.
	Deposit(ctx context.Context, id int64, amount money.Amount) (*models.Account, error)

	// Transfer atomically debits the payer, credits the merchant, and
	// appends a transaction, all-or-nothing. The balance check and the
	// debit happen in the same atomic unit. When invoiceID matches an
	// already-settled invoice with the same payer, merchant, and amount,
	// the existing transaction is returned and no balances move; a settled
	// invoiceID with different details fails with
	// models.ErrInvoiceMismatch.
	Transfer(ctx context.Context, payerID, merchantID int64, amount money.Amount, invoiceID string) (*models.Transaction, error)

	// ListTransactions retrieves transactions where the account appears in
	// the given role, most recent first.
	ListTransactions(ctx context.Context, accountID int64, role models.Role) ([]*models.Transaction, error)

	// Close releases any resources held by the store.
	Close() error
}
