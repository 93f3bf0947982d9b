// Package workflow implements the payer-side confirmation state machine
// that turns a scanned payload into a user-approved settlement.
//
// A successful scan alone never moves money: approval is a separate gating
// action, and a failed settlement requires a fresh approval rather than an
// automatic retry.
package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/gkash-app/gkash/internal/invoice"
	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
)

// State is the workflow's current phase.
type State string

const (
	StateIdle             State = "idle"
	StateScanning         State = "scanning"
	StateDecoded          State = "decoded"
	StateAwaitingApproval State = "awaiting_approval"
	StateSettling         State = "settling"
	StateSettled          State = "settled"
	StateFailed           State = "failed"
)

var (
	// ErrBadTransition indicates an event that is not legal in the current state.
	ErrBadTransition = errors.New("illegal workflow transition")
	// ErrApprovalDisabled indicates approval was attempted while the
	// projected balance is negative.
	ErrApprovalDisabled = errors.New("approval disabled: insufficient balance")
)

// Settler issues the settlement request. Implemented by the ledger directly
// or by an HTTP client on a payer device.
type Settler interface {
	Transfer(ctx context.Context, payerID, merchantID int64, amount money.Amount, invoiceID string) (*models.Transaction, error)
}

// MerchantResolver resolves the merchant named in a decoded invoice for
// display during approval.
type MerchantResolver interface {
	FindByID(ctx context.Context, id int64) (*models.Account, error)
}

// Workflow is one payer's confirmation flow. Driven by UI callbacks on a
// single client, it still guards its state with a mutex so that at most one
// settling transition is ever in flight.
type Workflow struct {
	settler  Settler
	resolver MerchantResolver
	payer    *models.Account

	mu       sync.Mutex
	state    State
	invoice  invoice.Invoice
	merchant *models.Account
	result   *models.Transaction
	failure  error
}

// New creates an idle workflow for the given payer account.
func New(settler Settler, resolver MerchantResolver, payer *models.Account) *Workflow {
	return &Workflow{
		settler:  settler,
		resolver: resolver,
		payer:    payer,
		state:    StateIdle,
	}
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// StartScan moves Idle -> Scanning when the user initiates a camera or file
// scan.
func (w *Workflow) StartScan() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateIdle {
		return ErrBadTransition
	}
	w.state = StateScanning
	return nil
}

// CancelScan returns Scanning -> Idle when the user abandons the scan.
func (w *Workflow) CancelScan() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateScanning {
		return ErrBadTransition
	}
	w.state = StateIdle
	return nil
}

// HandlePayload consumes a scanned payload. A well-formed payload moves
// Scanning -> Decoded -> AwaitingApproval; a malformed one returns the
// workflow to Idle with the decode error surfaced, without ever passing
// through Decoded.
func (w *Workflow) HandlePayload(ctx context.Context, payload []byte) error {
	w.mu.Lock()
	if w.state != StateScanning {
		w.mu.Unlock()
		return ErrBadTransition
	}
	w.mu.Unlock()

	inv, err := invoice.Decode(payload)
	if err != nil {
		w.mu.Lock()
		w.state = StateIdle
		w.mu.Unlock()
		return err
	}

	merchant, err := w.resolver.FindByID(ctx, inv.MerchantID)
	if err != nil {
		w.mu.Lock()
		w.state = StateIdle
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.invoice = inv
	w.merchant = merchant
	w.state = StateDecoded
	// The decoded invoice, merchant identity, and balance projection are
	// presented together; the state advances immediately.
	w.state = StateAwaitingApproval
	return nil
}

// Invoice returns the decoded invoice and resolved merchant for display.
func (w *Workflow) Invoice() (invoice.Invoice, *models.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.invoice, w.merchant
}

// ProjectedBalance is the payer balance after the pending transfer would
// apply: current balance minus the invoice amount. May be negative, in which
// case approval is disabled while the shortfall stays visible.
func (w *Workflow) ProjectedBalance() money.Amount {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.payer.Balance - w.invoice.Amount
}

// CanApprove reports whether the approval control is enabled: the workflow
// must be awaiting approval and the projected balance non-negative.
func (w *Workflow) CanApprove() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == StateAwaitingApproval && w.payer.Balance >= w.invoice.Amount
}

// Approve is the explicit user approval. It issues the settlement request
// exactly once: the state moves to Settling before the call, and the
// approval control stays disabled until a terminal state is reached.
func (w *Workflow) Approve(ctx context.Context) (*models.Transaction, error) {
	w.mu.Lock()
	if w.state != StateAwaitingApproval {
		w.mu.Unlock()
		return nil, ErrBadTransition
	}
	if w.payer.Balance < w.invoice.Amount {
		w.mu.Unlock()
		return nil, ErrApprovalDisabled
	}
	w.state = StateSettling
	inv := w.invoice
	payerID := w.payer.ID
	w.mu.Unlock()

	txn, err := w.settler.Transfer(ctx, payerID, inv.MerchantID, inv.Amount, inv.Nonce)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state = StateFailed
		w.failure = err
		return nil, err
	}

	w.state = StateSettled
	w.result = txn
	// Displayed balance is the server-confirmed value, not the projection.
	if txn.Payer != nil {
		w.payer.Balance = txn.Payer.Balance
	}
	return txn, nil
}

// Failure returns the reason for the last failed settlement.
func (w *Workflow) Failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failure
}

// Acknowledge returns a terminal workflow (Settled or Failed) to Idle.
// No retry is automatic: after a failure the user must scan-or-approve
// afresh, which prevents silent double submission.
func (w *Workflow) Acknowledge() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSettled && w.state != StateFailed {
		return ErrBadTransition
	}
	w.state = StateIdle
	w.failure = nil
	return nil
}
