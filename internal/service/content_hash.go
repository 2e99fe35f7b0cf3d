package service

import (
	"encoding/json"
	"fmt"

	"fintrack/internal/models"

	"github.com/cespare/xxhash/v2"
)

// Content hashes fingerprint the semantically meaningful fields of a record,
// excluding id, timestamps, and sync metadata. They exist only to skip
// re-sending unchanged records; the updatedAt comparison remains the conflict
// authority, so a collision can at worst delay an update, never corrupt data.

func hashFields(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Marshal of plain value structs cannot fail; keep the signature total.
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func hashAccount(a *models.Account) string {
	return hashFields(struct {
		Name           string
		Description    string
		Balance        float64
		Type           models.AccountType
		Icon           string
		Color          string
		IncludeInTotal bool
		CreditLimit    float64
		IsDeleted      bool
	}{a.Name, a.Description, a.Balance, a.Type, a.Icon, a.Color, a.IncludeInTotal, a.CreditLimit, a.IsDeleted})
}

func hashCategory(c *models.Category) string {
	var parent string
	if c.ParentID != nil {
		parent = c.ParentID.String()
	}
	return hashFields(struct {
		Name        string
		Description string
		Icon        string
		Color       string
		Type        models.CategoryType
		Parent      string
		SortOrder   int64
		IsDeleted   bool
	}{c.Name, c.Description, c.Icon, c.Color, c.Type, parent, c.SortOrder, c.IsDeleted})
}

func hashTransaction(t *models.Transaction) string {
	var toAccount, category string
	if t.ToAccountID != nil {
		toAccount = t.ToAccountID.String()
	}
	if t.CategoryID != nil {
		category = t.CategoryID.String()
	}
	return hashFields(struct {
		TransactionDate int64
		FromAccount     string
		ToAccount       string
		Category        string
		Amount          float64
		Description     string
		Notes           string
		Type            models.TransactionType
		IsDeleted       bool
	}{t.TransactionDate.UnixMilli(), t.FromAccountID.String(), toAccount, category,
		t.Amount, t.Description, t.Notes, t.Type, t.IsDeleted})
}
