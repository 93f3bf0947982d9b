package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
)

const accountColumns = "id, name, role, balance, pin_hash, created_at"

// Transfer debits the payer, credits the merchant, and appends a transaction
// as one atomic unit. The payer balance is checked at commit time inside the
// same transaction as the debit, so two concurrent transfers can never both
// pass the check and overdraw the account. Readers observe either the
// pre-transfer state or the fully committed one, never an intermediate state.
//
// When invoiceID references an already-settled invoice with the same payer,
// merchant, and amount, the existing transaction is returned unchanged and
// no balances move; the same nonce with different details is rejected with
// models.ErrInvoiceMismatch.
func (s *SQLiteStore) Transfer(ctx context.Context, payerID, merchantID int64, amount money.Amount, invoiceID string) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// A re-presented invoice coalesces into its original settlement. Only a
	// true replay coalesces: the same nonce with a different payer, merchant,
	// or amount is a client bug or tampering and is rejected.
	if invoiceID != "" {
		existing, err := scanTransaction(tx.QueryRowContext(ctx,
			"SELECT id, payer_id, merchant_id, amount, invoice_id, timestamp FROM transactions WHERE invoice_id = ?",
			invoiceID))
		if err == nil {
			if existing.PayerID != payerID || existing.MerchantID != merchantID || existing.Amount != amount {
				return nil, models.ErrInvoiceMismatch
			}
			if err := attachSnapshots(ctx, tx, existing); err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("failed to commit transaction: %w", err)
			}
			return existing, nil
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
	}

	payer, err := scanAccount(tx.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", payerID))
	if err != nil {
		return nil, err
	}
	merchant, err := scanAccount(tx.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", merchantID))
	if err != nil {
		return nil, err
	}
	if payer.Role != models.RolePayer || merchant.Role != models.RoleMerchant {
		return nil, models.ErrRoleMismatch
	}

	// Conditional debit: the WHERE clause is the commit-time balance check.
	res, err := tx.ExecContext(ctx,
		"UPDATE accounts SET balance = balance - ? WHERE id = ? AND balance >= ?",
		int64(amount), payerID, int64(amount))
	if err != nil {
		return nil, fmt.Errorf("failed to debit payer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read debit result: %w", err)
	}
	if affected == 0 {
		return nil, models.ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE accounts SET balance = balance + ? WHERE id = ?",
		int64(amount), merchantID); err != nil {
		return nil, fmt.Errorf("failed to credit merchant: %w", err)
	}

	// Timestamp assigned at commit time by the ledger, not by the client.
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (payer_id, merchant_id, amount, invoice_id, timestamp) VALUES (?, ?, ?, ?, ?)",
		payerID, merchantID, int64(amount), nullable(invoiceID), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction id: %w", err)
	}

	txn := &models.Transaction{
		ID:         id,
		PayerID:    payerID,
		MerchantID: merchantID,
		Amount:     amount,
		InvoiceID:  invoiceID,
		Timestamp:  now.Truncate(time.Second),
	}
	if err := attachSnapshots(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions retrieves transactions where the account appears in the
// given role, most recent first. Pure read, no locking against the log.
func (s *SQLiteStore) ListTransactions(ctx context.Context, accountID int64, role models.Role) ([]*models.Transaction, error) {
	column := "payer_id"
	if role == models.RoleMerchant {
		column = "merchant_id"
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, payer_id, merchant_id, amount, invoice_id, timestamp FROM transactions WHERE "+column+" = ? ORDER BY id DESC",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	txn := &models.Transaction{}
	var amount, ts int64
	var invoiceID sql.NullString
	err := row.Scan(&txn.ID, &txn.PayerID, &txn.MerchantID, &amount, &invoiceID, &ts)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	txn.Amount = money.Amount(amount)
	if invoiceID.Valid {
		txn.InvoiceID = invoiceID.String
	}
	txn.Timestamp = time.Unix(ts, 0).UTC()
	return txn, nil
}

// attachSnapshots loads the two account rows as seen inside the transaction
// so the settlement response carries post-commit balances.
func attachSnapshots(ctx context.Context, tx *sql.Tx, txn *models.Transaction) error {
	payer, err := scanAccount(tx.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", txn.PayerID))
	if err != nil {
		return err
	}
	merchant, err := scanAccount(tx.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", txn.MerchantID))
	if err != nil {
		return err
	}
	txn.Payer = payer
	txn.Merchant = merchant
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
