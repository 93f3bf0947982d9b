package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Balances are stored in centavos (INTEGER); the CHECK constraint backs up
// the ledger's non-negative invariant at the storage layer.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('payer', 'merchant')),
    balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
    pin_hash TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    payer_id INTEGER NOT NULL,
    merchant_id INTEGER NOT NULL,
    amount INTEGER NOT NULL CHECK (amount > 0),
    invoice_id TEXT,
    timestamp INTEGER NOT NULL,
    FOREIGN KEY (payer_id) REFERENCES accounts(id),
    FOREIGN KEY (merchant_id) REFERENCES accounts(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_invoice_id
    ON transactions(invoice_id) WHERE invoice_id IS NOT NULL AND invoice_id != '';
CREATE INDEX IF NOT EXISTS idx_transactions_payer_id ON transactions(payer_id);
CREATE INDEX IF NOT EXISTS idx_transactions_merchant_id ON transactions(merchant_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
