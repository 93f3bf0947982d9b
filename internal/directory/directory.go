// Package directory resolves account identifiers to balances and display
// metadata. Read-only projection over the store; balances it reports are
// only authoritative between completed ledger operations.
package directory

import (
	"context"

	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/storage"
)

// Directory is a read-only view of accounts.
type Directory struct {
	store storage.Store
}

// New creates a Directory over the given storage backend.
func New(store storage.Store) *Directory {
	return &Directory{store: store}
}

// FindByID resolves an account by identifier.
// Returns models.ErrAccountNotFound for unknown identifiers.
func (d *Directory) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return d.store.GetAccount(ctx, id)
}

// FindByRole resolves the account carrying the given role.
func (d *Directory) FindByRole(ctx context.Context, role models.Role) (*models.Account, error) {
	if !role.Valid() {
		return nil, models.ErrRoleMismatch
	}
	return d.store.GetAccountByRole(ctx, role)
}

// List returns all accounts with their current balances.
func (d *Directory) List(ctx context.Context) ([]*models.Account, error) {
	return d.store.ListAccounts(ctx)
}
