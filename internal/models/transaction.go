package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Transaction is the authoritative ledger event. Amount is always non-negative;
// its sign on account balances depends on Type: income adds to FromAccount,
// expense subtracts from FromAccount, transfer moves Amount from FromAccount
// to ToAccount. Deletion is a soft flag so disconnected replicas can observe
// it during sync.
type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	TransactionDate time.Time       `db:"transaction_date"`
	FromAccountID   uuid.UUID       `db:"from_account_id"`
	ToAccountID     *uuid.UUID      `db:"to_account_id"`
	CategoryID      *uuid.UUID      `db:"category_id"`
	Amount          float64         `db:"amount"`
	Description     string          `db:"description"`
	Notes           string          `db:"notes"`
	Type            TransactionType `db:"type"`
	IsDeleted       bool            `db:"is_deleted"`
	DeletedAt       *time.Time      `db:"deleted_at"`
	UpdatedAt       int64           `db:"updated_at"`
	SyncVersion     int64           `db:"sync_version"`
	LastModifiedBy  string          `db:"last_modified_by"`
	CreatedAt       time.Time       `db:"created_at"`
}

// AccountDeltas returns the signed balance effect of the transaction per
// account id. Transfers touch two accounts, everything else one.
func (t *Transaction) AccountDeltas() map[uuid.UUID]float64 {
	deltas := make(map[uuid.UUID]float64, 2)
	switch t.Type {
	case TransactionTypeIncome:
		deltas[t.FromAccountID] += t.Amount
	case TransactionTypeExpense:
		deltas[t.FromAccountID] -= t.Amount
	case TransactionTypeTransfer:
		deltas[t.FromAccountID] -= t.Amount
		if t.ToAccountID != nil {
			deltas[*t.ToAccountID] += t.Amount
		}
	}
	return deltas
}
