package models

import "errors"

// Sentinel errors shared by the ledger and its storage backends. Handlers
// map these onto HTTP statuses (400 validation, 404 not found, 409
// insufficient balance).
var (
	// ErrAccountNotFound indicates an unresolved account identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance indicates the payer balance at commit time was
	// below the transfer amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrRoleMismatch indicates the payer/merchant pair does not carry the
	// payer and merchant roles respectively.
	ErrRoleMismatch = errors.New("account role mismatch")
	// ErrSameAccount indicates payer and merchant are the same account.
	ErrSameAccount = errors.New("payer and merchant must be distinct accounts")
	// ErrInvoiceMismatch indicates a settled invoice nonce re-presented with
	// a different payer, merchant, or amount.
	ErrInvoiceMismatch = errors.New("invoice already settled with different details")
)
