package service

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService owns the ledger write path. Every mutation lands in the
// transaction table first and only then feeds the balance maintainer; a
// maintenance failure never unwinds the ledger write.
type TransactionService struct {
	transactions repository.TransactionRepository
	accounts     repository.AccountRepository
	categories   repository.CategoryRepository
	maintainer   *BalanceMaintainer
	cache        *cache.Cache
	logger       *zap.Logger
}

func NewTransactionService(
	transactions repository.TransactionRepository,
	accounts repository.AccountRepository,
	categories repository.CategoryRepository,
	maintainer *BalanceMaintainer,
	c *cache.Cache,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		accounts:     accounts,
		categories:   categories,
		maintainer:   maintainer,
		cache:        c,
		logger:       logger,
	}
}

func (s *TransactionService) Create(ctx context.Context, req *dto.TransactionRequest) (*dto.TransactionRecord, error) {
	tx, err := s.buildTransaction(ctx, uuid.New(), req)
	if err != nil {
		return nil, err
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.maintainer.OnTransactionCreated(ctx, tx)
	s.invalidateAggregates()

	record := transactionToRecord(tx, false)
	return &record, nil
}

func (s *TransactionService) Get(ctx context.Context, id uuid.UUID) (*dto.TransactionRecord, error) {
	tx, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	record := transactionToRecord(tx, false)
	return &record, nil
}

func (s *TransactionService) List(ctx context.Context, filter repository.TransactionFilter) ([]dto.TransactionRecord, error) {
	txs, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	records := make([]dto.TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, transactionToRecord(tx, false))
	}
	return records, nil
}

func (s *TransactionService) Update(ctx context.Context, id uuid.UUID, req *dto.TransactionRequest) (*dto.TransactionRecord, error) {
	old, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildTransaction(ctx, id, req)
	if err != nil {
		return nil, err
	}
	updated.SyncVersion = old.SyncVersion + 1
	updated.CreatedAt = old.CreatedAt

	if err := s.transactions.Update(ctx, updated); err != nil {
		return nil, err
	}

	s.maintainer.OnTransactionUpdated(ctx, old, updated)
	s.invalidateAggregates()

	record := transactionToRecord(updated, false)
	return &record, nil
}

// Delete soft-deletes by default, reversing the transaction's balance effect
// while keeping the row visible to sync. Permanent removes the row; it is the
// only hard-delete path and exists solely on this direct route, never in sync.
func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID, permanent bool) error {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}

	if permanent {
		if err := s.transactions.HardDelete(ctx, id); err != nil {
			return err
		}
		s.maintainer.OnTransactionHardDeleted(ctx, tx)
		s.invalidateAggregates()
		return nil
	}

	if tx.IsDeleted {
		return ErrTransactionNotFound
	}
	if err := s.transactions.SoftDelete(ctx, id, time.Now(), nowMillis()); err != nil {
		return err
	}
	s.maintainer.OnTransactionSoftDeleted(ctx, tx)
	s.invalidateAggregates()
	return nil
}

// Restore undoes a soft delete and re-applies the balance effect. Restoring an
// active transaction is a no-op, so delete-then-restore nets to zero on every
// touched balance.
func (s *TransactionService) Restore(ctx context.Context, id uuid.UUID) (*dto.TransactionRecord, error) {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if tx.IsDeleted {
		if err := s.transactions.Restore(ctx, id, nowMillis()); err != nil {
			return nil, err
		}
		restored := *tx
		restored.IsDeleted = false
		restored.DeletedAt = nil
		s.maintainer.OnTransactionUpdated(ctx, tx, &restored)
		s.invalidateAggregates()
		tx = &restored
	}

	record := transactionToRecord(tx, false)
	return &record, nil
}

func (s *TransactionService) buildTransaction(ctx context.Context, id uuid.UUID, req *dto.TransactionRequest) (*models.Transaction, error) {
	txType := models.TransactionType(req.Type)
	switch txType {
	case models.TransactionTypeIncome, models.TransactionTypeExpense, models.TransactionTypeTransfer:
	default:
		return nil, ErrInvalidType
	}
	if req.Amount < 0 {
		return nil, ErrNegativeAmount
	}

	date, err := parseRecordDate(req.TransactionDate)
	if err != nil {
		return nil, err
	}

	fromAccountID, err := uuid.Parse(req.FromAccount)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	if err := s.requireAccount(ctx, fromAccountID); err != nil {
		return nil, err
	}

	var toAccountID *uuid.UUID
	if req.ToAccount != nil && *req.ToAccount != "" {
		parsed, err := uuid.Parse(*req.ToAccount)
		if err != nil {
			return nil, ErrAccountNotFound
		}
		if err := s.requireAccount(ctx, parsed); err != nil {
			return nil, err
		}
		toAccountID = &parsed
	}
	if txType == models.TransactionTypeTransfer && toAccountID == nil {
		return nil, ErrTargetAccountNeeded
	}

	var categoryID *uuid.UUID
	if req.Category != nil && *req.Category != "" {
		parsed, err := uuid.Parse(*req.Category)
		if err != nil {
			return nil, ErrCategoryNotFound
		}
		category, err := s.categories.GetByID(ctx, parsed)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		if category.IsDeleted {
			return nil, ErrCategoryNotFound
		}
		categoryID = &parsed
	}

	return &models.Transaction{
		ID:              id,
		TransactionDate: date,
		FromAccountID:   fromAccountID,
		ToAccountID:     toAccountID,
		CategoryID:      categoryID,
		Amount:          req.Amount,
		Description:     sanitizeUTF8(req.Description),
		Notes:           sanitizeUTF8(req.Notes),
		Type:            txType,
		UpdatedAt:       nowMillis(),
		SyncVersion:     1,
		LastModifiedBy:  modifiedBy(req.LastModifiedBy),
		CreatedAt:       time.Now(),
	}, nil
}

func (s *TransactionService) requireAccount(ctx context.Context, id uuid.UUID) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if account.IsDeleted {
		return ErrAccountNotFound
	}
	return nil
}

func (s *TransactionService) getActive(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, err := s.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if tx.IsDeleted {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *TransactionService) invalidateAggregates() {
	if s.cache != nil {
		s.cache.ClearAggregates()
	}
}
