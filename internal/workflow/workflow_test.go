package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gkash-app/gkash/internal/invoice"
	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
)

type fakeSettler struct {
	mu    sync.Mutex
	calls int
	err   error
	txn   *models.Transaction
}

func (f *fakeSettler) Transfer(ctx context.Context, payerID, merchantID int64, amount money.Amount, invoiceID string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.txn != nil {
		return f.txn, nil
	}
	return &models.Transaction{
		ID:         1,
		PayerID:    payerID,
		MerchantID: merchantID,
		Amount:     amount,
		InvoiceID:  invoiceID,
	}, nil
}

func (f *fakeSettler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeResolver struct {
	merchant *models.Account
	err      error
}

func (f *fakeResolver) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.merchant, nil
}

func testPayer(balance money.Amount) *models.Account {
	return &models.Account{ID: 2, Name: "Joshua Miguel", Role: models.RolePayer, Balance: balance}
}

func testMerchant() *models.Account {
	return &models.Account{ID: 1, Name: "Koffee Shop MNL", Role: models.RoleMerchant}
}

func encodedInvoice(t *testing.T, amount money.Amount) []byte {
	t.Helper()
	inv := invoice.New(1, amount)
	payload, err := invoice.Encode(inv)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return payload
}

func scanTo(t *testing.T, w *Workflow, payload []byte) {
	t.Helper()
	if err := w.StartScan(); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if err := w.HandlePayload(context.Background(), payload); err != nil {
		t.Fatalf("HandlePayload failed: %v", err)
	}
}

func TestScanApproveSettle(t *testing.T) {
	settler := &fakeSettler{}
	w := New(settler, &fakeResolver{merchant: testMerchant()}, testPayer(50000))

	if w.State() != StateIdle {
		t.Fatalf("initial state = %q, want idle", w.State())
	}

	scanTo(t, w, encodedInvoice(t, 15000))
	if w.State() != StateAwaitingApproval {
		t.Fatalf("state after scan = %q, want awaiting_approval", w.State())
	}

	inv, merchant := w.Invoice()
	if inv.Amount != 15000 {
		t.Errorf("invoice amount = %d, want 15000", inv.Amount)
	}
	if merchant == nil || merchant.Name != "Koffee Shop MNL" {
		t.Errorf("merchant = %+v, want Koffee Shop MNL", merchant)
	}
	if got := w.ProjectedBalance(); got != 35000 {
		t.Errorf("projected balance = %d, want 35000", got)
	}
	if !w.CanApprove() {
		t.Error("CanApprove = false, want true")
	}

	txn, err := w.Approve(context.Background())
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if txn.InvoiceID != inv.Nonce {
		t.Errorf("settled invoice = %q, want nonce %q", txn.InvoiceID, inv.Nonce)
	}
	if w.State() != StateSettled {
		t.Errorf("state after approve = %q, want settled", w.State())
	}
	if settler.callCount() != 1 {
		t.Errorf("settler called %d times, want 1", settler.callCount())
	}

	if err := w.Acknowledge(); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state after acknowledge = %q, want idle", w.State())
	}
}

func TestSettledBalanceComesFromServer(t *testing.T) {
	payer := testPayer(50000)
	// Server snapshot disagrees with the local projection; the snapshot wins.
	settler := &fakeSettler{txn: &models.Transaction{
		ID:     1,
		Payer:  &models.Account{ID: 2, Balance: 34000},
		Amount: 15000,
	}}
	w := New(settler, &fakeResolver{merchant: testMerchant()}, payer)

	scanTo(t, w, encodedInvoice(t, 15000))
	if _, err := w.Approve(context.Background()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if payer.Balance != 34000 {
		t.Errorf("payer balance = %d, want server-confirmed 34000", payer.Balance)
	}
}

func TestMalformedPayloadReturnsToIdle(t *testing.T) {
	w := New(&fakeSettler{}, &fakeResolver{merchant: testMerchant()}, testPayer(50000))

	if err := w.StartScan(); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	err := w.HandlePayload(context.Background(), []byte("https://example.com/not-an-invoice"))
	if err == nil {
		t.Fatal("expected decode error for malformed payload")
	}
	var decodeErr *invoice.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("error = %T, want *invoice.DecodeError", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state = %q, want idle after malformed payload", w.State())
	}
}

func TestUnknownMerchantReturnsToIdle(t *testing.T) {
	w := New(&fakeSettler{}, &fakeResolver{err: models.ErrAccountNotFound}, testPayer(50000))

	if err := w.StartScan(); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	err := w.HandlePayload(context.Background(), encodedInvoice(t, 15000))
	if !errors.Is(err, models.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state = %q, want idle", w.State())
	}
}

func TestApprovalDisabledOnShortfall(t *testing.T) {
	settler := &fakeSettler{}
	// Balance 100, invoice 150: the invoice still decodes and is presented,
	// but approval is disabled while the negative projection stays visible.
	w := New(settler, &fakeResolver{merchant: testMerchant()}, testPayer(10000))

	scanTo(t, w, encodedInvoice(t, 15000))
	if w.State() != StateAwaitingApproval {
		t.Fatalf("state = %q, want awaiting_approval", w.State())
	}
	if got := w.ProjectedBalance(); got != -5000 {
		t.Errorf("projected balance = %d, want -5000", got)
	}
	if w.CanApprove() {
		t.Error("CanApprove = true, want false on shortfall")
	}

	_, err := w.Approve(context.Background())
	if !errors.Is(err, ErrApprovalDisabled) {
		t.Errorf("Approve error = %v, want ErrApprovalDisabled", err)
	}
	if settler.callCount() != 0 {
		t.Errorf("settler called %d times, want 0", settler.callCount())
	}
}

func TestFailedSettlementRequiresFreshApproval(t *testing.T) {
	settler := &fakeSettler{err: models.ErrInsufficientBalance}
	w := New(settler, &fakeResolver{merchant: testMerchant()}, testPayer(50000))

	scanTo(t, w, encodedInvoice(t, 15000))
	_, err := w.Approve(context.Background())
	if !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("Approve error = %v, want ErrInsufficientBalance", err)
	}
	if w.State() != StateFailed {
		t.Errorf("state = %q, want failed", w.State())
	}
	if !errors.Is(w.Failure(), models.ErrInsufficientBalance) {
		t.Errorf("Failure() = %v, want ErrInsufficientBalance", w.Failure())
	}

	// No automatic retry: a second approval in the failed state is illegal.
	if _, err := w.Approve(context.Background()); !errors.Is(err, ErrBadTransition) {
		t.Errorf("Approve in failed state error = %v, want ErrBadTransition", err)
	}
	if settler.callCount() != 1 {
		t.Errorf("settler called %d times, want 1", settler.callCount())
	}

	// Acknowledging the failure returns to idle; settling again requires a
	// full scan-and-approve cycle.
	if err := w.Acknowledge(); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state = %q, want idle", w.State())
	}
	if w.Failure() != nil {
		t.Errorf("Failure() = %v after acknowledge, want nil", w.Failure())
	}
}

func TestIllegalTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, w *Workflow)
		event func(w *Workflow) error
	}{
		{
			name:  "scan from scanning",
			setup: func(t *testing.T, w *Workflow) { w.StartScan() },
			event: func(w *Workflow) error { return w.StartScan() },
		},
		{
			name:  "cancel from idle",
			setup: func(t *testing.T, w *Workflow) {},
			event: func(w *Workflow) error { return w.CancelScan() },
		},
		{
			name:  "payload from idle",
			setup: func(t *testing.T, w *Workflow) {},
			event: func(w *Workflow) error { return w.HandlePayload(ctx, []byte("{}")) },
		},
		{
			name:  "approve from idle",
			setup: func(t *testing.T, w *Workflow) {},
			event: func(w *Workflow) error { _, err := w.Approve(ctx); return err },
		},
		{
			name: "approve from scanning",
			setup: func(t *testing.T, w *Workflow) {
				w.StartScan()
			},
			event: func(w *Workflow) error { _, err := w.Approve(ctx); return err },
		},
		{
			name:  "acknowledge from idle",
			setup: func(t *testing.T, w *Workflow) {},
			event: func(w *Workflow) error { return w.Acknowledge() },
		},
		{
			name: "acknowledge from awaiting approval",
			setup: func(t *testing.T, w *Workflow) {
				scanTo(t, w, encodedInvoice(t, 100))
			},
			event: func(w *Workflow) error { return w.Acknowledge() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(&fakeSettler{}, &fakeResolver{merchant: testMerchant()}, testPayer(50000))
			tt.setup(t, w)
			if err := tt.event(w); !errors.Is(err, ErrBadTransition) {
				t.Errorf("error = %v, want ErrBadTransition", err)
			}
		})
	}
}

func TestCancelScanReturnsToIdle(t *testing.T) {
	w := New(&fakeSettler{}, &fakeResolver{merchant: testMerchant()}, testPayer(50000))

	if err := w.StartScan(); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if err := w.CancelScan(); err != nil {
		t.Fatalf("CancelScan failed: %v", err)
	}
	if w.State() != StateIdle {
		t.Errorf("state = %q, want idle", w.State())
	}
}

func TestConcurrentApprovalsSettleOnce(t *testing.T) {
	settler := &fakeSettler{}
	w := New(settler, &fakeResolver{merchant: testMerchant()}, testPayer(50000))
	scanTo(t, w, encodedInvoice(t, 15000))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.Approve(context.Background())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrBadTransition) {
			t.Errorf("unexpected approval error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d approvals succeeded, want exactly 1", succeeded)
	}
	if settler.callCount() != 1 {
		t.Errorf("settler called %d times, want 1", settler.callCount())
	}
}
