package models

import (
	"time"

	"github.com/google/uuid"
)

type AccountType string

const (
	AccountTypeDebit  AccountType = "debit"
	AccountTypeCredit AccountType = "credit"
)

// Account is a money container. Balance is a maintained running total kept in
// step with the transaction ledger by the balance maintainer; the ledger stays
// authoritative and the balance can always be re-derived from it.
type Account struct {
	ID             uuid.UUID   `db:"id"`
	Name           string      `db:"name"`
	Description    string      `db:"description"`
	Balance        float64     `db:"balance"`
	Type           AccountType `db:"type"`
	Icon           string      `db:"icon"`
	Color          string      `db:"color"`
	IncludeInTotal bool        `db:"include_in_total"`
	CreditLimit    float64     `db:"credit_limit"`
	IsDeleted      bool        `db:"is_deleted"`
	UpdatedAt      int64       `db:"updated_at"` // epoch ms, sync comparison basis
	SyncVersion    int64       `db:"sync_version"`
	LastModifiedBy string      `db:"last_modified_by"`
	CreatedAt      time.Time   `db:"created_at"`
}
