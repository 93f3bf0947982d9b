// Package models defines the core domain models for GKash.
//
// # Models
//
//   - Account: a payer or merchant wallet with a centavo balance
//   - Transaction: an immutable record of one settled payment
//   - Role: the fixed account role (payer | merchant)
//
// # Design Principles
//
//  1. Balances are centavo integers (money.Amount), never floats
//  2. Roles are fixed at creation; a transaction always pairs one payer
//     with one distinct merchant
//  3. Transactions are append-only: created once by the ledger at commit
//     time, never updated or deleted
//  4. Accounts are mutated only by ledger operations (transfer, deposit);
//     no other component writes a balance
package models
