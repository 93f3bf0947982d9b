package models

import (
	"time"

	"github.com/gkash-app/gkash/internal/money"
)

// Transaction is an immutable record of one settled payment.
// The ledger creates exactly one per successful transfer; the timestamp is
// assigned at commit time, never taken from the client.
type Transaction struct {
	// ID is assigned monotonically by the store.
	ID int64 `json:"id"`

	// PayerID references the debited account.
	PayerID int64 `json:"payerId"`

	// MerchantID references the credited account.
	MerchantID int64 `json:"merchantId"`

	// Amount is the settled amount in centavos, equal to the invoice amount.
	Amount money.Amount `json:"amount"`

	// InvoiceID is the nonce of the invoice that produced this transaction.
	// Unique across the log: re-presenting a settled invoice coalesces into
	// this record instead of debiting again.
	InvoiceID string `json:"invoiceId"`

	// Timestamp is the ledger commit time.
	Timestamp time.Time `json:"timestamp"`

	// Payer and Merchant are post-commit account snapshots, populated on
	// the settlement response for display. Nil on history reads.
	Payer    *Account `json:"payer,omitempty"`
	Merchant *Account `json:"merchant,omitempty"`
}
