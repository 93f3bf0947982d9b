package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gkash-app/gkash/internal/models"
	"github.com/gkash-app/gkash/internal/money"
)

// CreateAccount persists a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.CreatedAt == 0 {
		account.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, role, balance, pin_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		account.ID, account.Name, string(account.Role), int64(account.Balance), account.PINHash, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		"SELECT id, name, role, balance, pin_hash, created_at FROM accounts WHERE id = ?", id))
}

// GetAccountByRole retrieves the first account carrying the given role.
func (s *SQLiteStore) GetAccountByRole(ctx context.Context, role models.Role) (*models.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		"SELECT id, name, role, balance, pin_hash, created_at FROM accounts WHERE role = ? ORDER BY id LIMIT 1",
		string(role)))
}

// ListAccounts retrieves all accounts ordered by ID.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, role, balance, pin_hash, created_at FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		var role string
		var balance int64
		if err := rows.Scan(&account.ID, &account.Name, &role, &balance, &account.PINHash, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.Role = models.Role(role)
		account.Balance = money.Amount(balance)
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// Deposit atomically credits amount to the account.
func (s *SQLiteStore) Deposit(ctx context.Context, id int64, amount money.Amount) (*models.Account, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET balance = balance + ? WHERE id = ?", int64(amount), id)
	if err != nil {
		return nil, fmt.Errorf("failed to apply deposit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read deposit result: %w", err)
	}
	if affected == 0 {
		return nil, models.ErrAccountNotFound
	}
	return s.GetAccount(ctx, id)
}

// rowScanner covers both *sql.Row and scanning inside a transaction.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	account := &models.Account{}
	var role string
	var balance int64
	err := row.Scan(&account.ID, &account.Name, &role, &balance, &account.PINHash, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	account.Role = models.Role(role)
	account.Balance = money.Amount(balance)
	return account, nil
}
