package service

import (
	"fmt"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"

	"github.com/google/uuid"
)

func accountToRecord(a *models.Account, withHash bool) dto.AccountRecord {
	rec := dto.AccountRecord{
		ID:             a.ID.String(),
		Name:           a.Name,
		Description:    a.Description,
		Balance:        a.Balance,
		Type:           string(a.Type),
		Icon:           a.Icon,
		Color:          a.Color,
		IncludeInTotal: a.IncludeInTotal,
		CreditLimit:    a.CreditLimit,
		IsDeleted:      a.IsDeleted,
		UpdatedAt:      a.UpdatedAt,
		SyncVersion:    a.SyncVersion,
		LastModifiedBy: a.LastModifiedBy,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
	if withHash {
		rec.Hash = hashAccount(a)
	}
	return rec
}

func categoryToRecord(c *models.Category, withHash bool) dto.CategoryRecord {
	var parent *string
	if c.ParentID != nil {
		p := c.ParentID.String()
		parent = &p
	}
	rec := dto.CategoryRecord{
		ID:                     c.ID.String(),
		Name:                   c.Name,
		Description:            c.Description,
		Icon:                   c.Icon,
		Color:                  c.Color,
		Type:                   string(c.Type),
		Parent:                 parent,
		SortOrder:              c.SortOrder,
		Balance:                c.Balance,
		DirectBalance:          c.DirectBalance,
		TransactionCount:       c.TransactionCount,
		DirectTransactionCount: c.DirectTransactionCount,
		IsDeleted:              c.IsDeleted,
		UpdatedAt:              c.UpdatedAt,
		SyncVersion:            c.SyncVersion,
		LastModifiedBy:         c.LastModifiedBy,
		CreatedAt:              c.CreatedAt.Format(time.RFC3339),
	}
	if withHash {
		rec.Hash = hashCategory(c)
	}
	return rec
}

func transactionToRecord(t *models.Transaction, withHash bool) dto.TransactionRecord {
	var toAccount, category, deletedAt *string
	if t.ToAccountID != nil {
		s := t.ToAccountID.String()
		toAccount = &s
	}
	if t.CategoryID != nil {
		s := t.CategoryID.String()
		category = &s
	}
	if t.DeletedAt != nil {
		s := t.DeletedAt.Format(time.RFC3339)
		deletedAt = &s
	}
	rec := dto.TransactionRecord{
		ID:              t.ID.String(),
		TransactionDate: t.TransactionDate.Format(time.RFC3339),
		FromAccount:     t.FromAccountID.String(),
		ToAccount:       toAccount,
		Category:        category,
		Amount:          t.Amount,
		Description:     t.Description,
		Notes:           t.Notes,
		Type:            string(t.Type),
		IsDeleted:       t.IsDeleted,
		DeletedAt:       deletedAt,
		UpdatedAt:       t.UpdatedAt,
		SyncVersion:     t.SyncVersion,
		LastModifiedBy:  t.LastModifiedBy,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
	if withHash {
		rec.Hash = hashTransaction(t)
	}
	return rec
}

func recordToAccount(rec *dto.AccountRecord) (*models.Account, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q: %w", rec.ID, err)
	}
	accountType := models.AccountType(rec.Type)
	if accountType != models.AccountTypeDebit && accountType != models.AccountTypeCredit {
		return nil, fmt.Errorf("account %s: %w", rec.ID, ErrInvalidType)
	}
	return &models.Account{
		ID:             id,
		Name:           sanitizeUTF8(rec.Name),
		Description:    sanitizeUTF8(rec.Description),
		Balance:        rec.Balance,
		Type:           accountType,
		Icon:           rec.Icon,
		Color:          rec.Color,
		IncludeInTotal: rec.IncludeInTotal,
		CreditLimit:    rec.CreditLimit,
		IsDeleted:      rec.IsDeleted,
		UpdatedAt:      rec.UpdatedAt,
		SyncVersion:    rec.SyncVersion,
		LastModifiedBy: rec.LastModifiedBy,
		CreatedAt:      time.Now(),
	}, nil
}

func recordToCategory(rec *dto.CategoryRecord) (*models.Category, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid category id %q: %w", rec.ID, err)
	}
	categoryType := models.CategoryType(rec.Type)
	if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
		return nil, fmt.Errorf("category %s: %w", rec.ID, ErrInvalidType)
	}
	var parentID *uuid.UUID
	if rec.Parent != nil && *rec.Parent != "" {
		parsed, err := uuid.Parse(*rec.Parent)
		if err != nil {
			return nil, fmt.Errorf("invalid parent id %q: %w", *rec.Parent, err)
		}
		parentID = &parsed
	}
	return &models.Category{
		ID:                     id,
		Name:                   sanitizeUTF8(rec.Name),
		Description:            sanitizeUTF8(rec.Description),
		Icon:                   rec.Icon,
		Color:                  rec.Color,
		Type:                   categoryType,
		ParentID:               parentID,
		SortOrder:              rec.SortOrder,
		Balance:                rec.Balance,
		DirectBalance:          rec.DirectBalance,
		TransactionCount:       rec.TransactionCount,
		DirectTransactionCount: rec.DirectTransactionCount,
		IsDeleted:              rec.IsDeleted,
		UpdatedAt:              rec.UpdatedAt,
		SyncVersion:            rec.SyncVersion,
		LastModifiedBy:         rec.LastModifiedBy,
		CreatedAt:              time.Now(),
	}, nil
}

func recordToTransaction(rec *dto.TransactionRecord) (*models.Transaction, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w", rec.ID, err)
	}
	txType := models.TransactionType(rec.Type)
	switch txType {
	case models.TransactionTypeIncome, models.TransactionTypeExpense, models.TransactionTypeTransfer:
	default:
		return nil, fmt.Errorf("transaction %s: %w", rec.ID, ErrInvalidType)
	}
	if rec.Amount < 0 {
		return nil, fmt.Errorf("transaction %s: %w", rec.ID, ErrNegativeAmount)
	}
	fromAccount, err := uuid.Parse(rec.FromAccount)
	if err != nil {
		return nil, fmt.Errorf("invalid fromAccount %q: %w", rec.FromAccount, err)
	}
	var toAccount, category *uuid.UUID
	if rec.ToAccount != nil && *rec.ToAccount != "" {
		parsed, err := uuid.Parse(*rec.ToAccount)
		if err != nil {
			return nil, fmt.Errorf("invalid toAccount %q: %w", *rec.ToAccount, err)
		}
		toAccount = &parsed
	}
	if rec.Category != nil && *rec.Category != "" {
		parsed, err := uuid.Parse(*rec.Category)
		if err != nil {
			return nil, fmt.Errorf("invalid category %q: %w", *rec.Category, err)
		}
		category = &parsed
	}
	date, err := parseRecordDate(rec.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("invalid transactionDate %q: %w", rec.TransactionDate, err)
	}
	var deletedAt *time.Time
	if rec.DeletedAt != nil && *rec.DeletedAt != "" {
		parsed, err := parseRecordDate(*rec.DeletedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid deletedAt %q: %w", *rec.DeletedAt, err)
		}
		deletedAt = &parsed
	}
	return &models.Transaction{
		ID:              id,
		TransactionDate: date,
		FromAccountID:   fromAccount,
		ToAccountID:     toAccount,
		CategoryID:      category,
		Amount:          rec.Amount,
		Description:     sanitizeUTF8(rec.Description),
		Notes:           sanitizeUTF8(rec.Notes),
		Type:            txType,
		IsDeleted:       rec.IsDeleted,
		DeletedAt:       deletedAt,
		UpdatedAt:       rec.UpdatedAt,
		SyncVersion:     rec.SyncVersion,
		LastModifiedBy:  rec.LastModifiedBy,
		CreatedAt:       time.Now(),
	}, nil
}

func parseRecordDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
