package models

import "github.com/gkash-app/gkash/internal/money"

// Role is an account's fixed role in settlements.
type Role string

const (
	// RolePayer marks an account that scans invoices and gets debited.
	RolePayer Role = "payer"
	// RoleMerchant marks an account that issues invoices and gets credited.
	RoleMerchant Role = "merchant"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RolePayer || r == RoleMerchant
}

// Account represents a wallet holding a centavo balance.
type Account struct {
	// ID is the stable account identifier.
	ID int64 `json:"id"`

	// Name is the display name shown on dashboards and confirmations.
	Name string `json:"name"`

	// Role is fixed at creation and never changes.
	Role Role `json:"role"`

	// Balance is the current balance in centavos. Never negative between
	// completed ledger operations.
	Balance money.Amount `json:"balance"`

	// PINHash is the bcrypt hash of the account's login PIN.
	// Never serialized to clients.
	PINHash string `json:"-"`

	// CreatedAt is the Unix timestamp when the account was seeded.
	CreatedAt int64 `json:"createdAt"`
}
