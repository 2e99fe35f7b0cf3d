package models

import (
	"time"

	"github.com/google/uuid"
)

type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category is a node in the category tree. DirectBalance/DirectTransactionCount
// cover transactions assigned to this category only; Balance/TransactionCount
// include every descendant, so for any node
// Balance == DirectBalance + sum of children Balance.
type Category struct {
	ID                     uuid.UUID    `db:"id"`
	Name                   string       `db:"name"`
	Description            string       `db:"description"`
	Icon                   string       `db:"icon"`
	Color                  string       `db:"color"`
	Type                   CategoryType `db:"type"`
	ParentID               *uuid.UUID   `db:"parent_id"`
	SortOrder              int64        `db:"sort_order"`
	Balance                float64      `db:"balance"`
	DirectBalance          float64      `db:"direct_balance"`
	TransactionCount       int64        `db:"transaction_count"`
	DirectTransactionCount int64        `db:"direct_transaction_count"`
	IsDeleted              bool         `db:"is_deleted"`
	UpdatedAt              int64        `db:"updated_at"`
	SyncVersion            int64        `db:"sync_version"`
	LastModifiedBy         string       `db:"last_modified_by"`
	CreatedAt              time.Time    `db:"created_at"`
}
