// Package invoice encodes and decodes payment invoices to and from the
// compact JSON payload carried inside a QR code.
//
// Encoding and decoding are pure: no network, no ledger access. The payload
// carries no signature; integrity relies on a successful structured decode.
package invoice

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gkash-app/gkash/internal/money"
)

// DecodeErrorKind classifies why a payload failed to decode.
type DecodeErrorKind string

const (
	// Malformed means the payload is not parseable structured data.
	Malformed DecodeErrorKind = "malformed"
	// InvalidAmount means the decoded amount is not a finite, strictly
	// positive number.
	InvalidAmount DecodeErrorKind = "invalid_amount"
)

// DecodeError describes a payload that could not be decoded into an invoice.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode invoice (%s): %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Invoice is an unsettled payment request. Ephemeral: it exists only as a
// QR payload and as the input to a transfer request, never persisted.
type Invoice struct {
	// MerchantID identifies the account to credit.
	MerchantID int64

	// Amount is the requested amount in centavos, strictly positive.
	Amount money.Amount

	// Timestamp is the issuance time.
	Timestamp time.Time

	// Nonce uniquely identifies this invoice so the ledger can coalesce a
	// re-presented QR code instead of debiting twice.
	Nonce string
}

// payload is the wire form. Amount travels as a decimal number and the
// timestamp as ISO-8601, matching what merchant displays have always emitted.
type payload struct {
	MerchantID int64           `json:"merchantId"`
	Amount     json.RawMessage `json:"amount"`
	Timestamp  string          `json:"timestamp"`
	Nonce      string          `json:"nonce,omitempty"`
}

// New builds an invoice for the given merchant and amount, stamped now and
// carrying a fresh nonce. The caller validates amount > 0 and merchant
// identity before encoding.
func New(merchantID int64, amount money.Amount) Invoice {
	return Invoice{
		MerchantID: merchantID,
		Amount:     amount,
		Timestamp:  time.Now().UTC(),
		Nonce:      uuid.New().String(),
	}
}

// Encode serializes the invoice into its QR payload bytes.
// Deterministic given identical inputs.
func Encode(inv Invoice) ([]byte, error) {
	p := payload{
		MerchantID: inv.MerchantID,
		Amount:     json.RawMessage(inv.Amount.Decimal().String()),
		Timestamp:  inv.Timestamp.Format(time.RFC3339),
		Nonce:      inv.Nonce,
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode invoice: %w", err)
	}
	return data, nil
}

// Decode parses QR payload bytes back into an invoice.
// Returns a *DecodeError with kind Malformed for unparseable data and
// InvalidAmount for a non-positive or over-precise amount.
func Decode(data []byte) (Invoice, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Invoice{}, &DecodeError{Kind: Malformed, Err: err}
	}
	if p.MerchantID == 0 {
		return Invoice{}, &DecodeError{Kind: Malformed, Err: fmt.Errorf("missing merchantId")}
	}
	if len(p.Amount) == 0 {
		return Invoice{}, &DecodeError{Kind: InvalidAmount, Err: fmt.Errorf("missing amount")}
	}

	d, err := decimal.NewFromString(trimQuotes(string(p.Amount)))
	if err != nil {
		return Invoice{}, &DecodeError{Kind: InvalidAmount, Err: err}
	}
	amount, err := money.FromDecimal(d)
	if err != nil {
		return Invoice{}, &DecodeError{Kind: InvalidAmount, Err: err}
	}
	if amount <= 0 {
		return Invoice{}, &DecodeError{Kind: InvalidAmount, Err: fmt.Errorf("amount must be positive, got %s", d)}
	}

	ts, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return Invoice{}, &DecodeError{Kind: Malformed, Err: fmt.Errorf("bad timestamp: %w", err)}
	}

	return Invoice{
		MerchantID: p.MerchantID,
		Amount:     amount,
		Timestamp:  ts,
		Nonce:      p.Nonce,
	}, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
