// Package ledger owns account balances and the append-only transaction log.
//
// All balance mutation in the system funnels through Transfer and Deposit;
// no caller ever reads-then-writes a balance outside this boundary. Both
// operations run to a definite committed-or-rejected outcome: they validate
// and fail fast before mutating any state, and their effects apply as a
// single atomic unit in the store.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
	"github.com/gkash-app/gkash/internal/storage"
)

// Ledger exposes the settlement operations over a storage backend.
type Ledger struct {
	store storage.Store
}

// New creates a Ledger with the given storage backend.
func New(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// Deposit credits amount to the account and returns the updated account.
// A deposit is a single-entry credit with no counterparty: no transaction
// record is created.
func (l *Ledger) Deposit(ctx context.Context, accountID int64, amount money.Amount) (*models.Account, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}

	account, err := l.store.Deposit(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}

	slog.Info("Deposit committed",
		"account_id", accountID,
		"amount", amount.String(),
		"balance", account.Balance.String(),
	)
	return account, nil
}

// Transfer debits the payer, credits the merchant, and records a
// transaction, all-or-nothing. The payer balance is evaluated at commit
// time; concurrent transfers against the same payer are serialized by the
// store, so the account can never be overdrawn. invoiceID, when present,
// acts as an idempotency key: a transfer referencing an already-settled
// invoice returns the original transaction without moving money again.
func (l *Ledger) Transfer(ctx context.Context, payerID, merchantID int64, amount money.Amount, invoiceID string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, models.ErrInvalidAmount
	}
	if payerID == merchantID {
		return nil, models.ErrSameAccount
	}

	txn, err := l.store.Transfer(ctx, payerID, merchantID, amount, invoiceID)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientBalance) {
			slog.Warn("Transfer rejected",
				"payer_id", payerID,
				"merchant_id", merchantID,
				"amount", amount.String(),
				"reason", "insufficient balance",
			)
		}
		return nil, err
	}

	slog.Info("Transfer committed",
		"transaction_id", txn.ID,
		"payer_id", payerID,
		"merchant_id", merchantID,
		"amount", txn.Amount.String(),
		"invoice_id", txn.InvoiceID,
	)
	return txn, nil
}

// History returns the account's transactions in the given role, most recent
// first. Pure read: a reader may miss a transfer committed an instant
// earlier, but never sees one that did not commit.
func (l *Ledger) History(ctx context.Context, accountID int64, role models.Role) ([]*models.Transaction, error) {
	if !role.Valid() {
		return nil, models.ErrRoleMismatch
	}
	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return l.store.ListTransactions(ctx, accountID, role)
}
