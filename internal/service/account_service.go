package service

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AccountService struct {
	accounts repository.AccountRepository
	logger   *zap.Logger
}

func NewAccountService(accounts repository.AccountRepository, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts: accounts,
		logger:   logger,
	}
}

func (s *AccountService) Create(ctx context.Context, req *dto.AccountRequest) (*dto.AccountRecord, error) {
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	accountType := models.AccountType(req.Type)
	if accountType == "" {
		accountType = models.AccountTypeDebit
	}
	if accountType != models.AccountTypeDebit && accountType != models.AccountTypeCredit {
		return nil, ErrInvalidType
	}

	includeInTotal := true
	if req.IncludeInTotal != nil {
		includeInTotal = *req.IncludeInTotal
	}

	account := &models.Account{
		ID:             uuid.New(),
		Name:           sanitizeUTF8(req.Name),
		Description:    sanitizeUTF8(req.Description),
		Balance:        req.Balance,
		Type:           accountType,
		Icon:           req.Icon,
		Color:          req.Color,
		IncludeInTotal: includeInTotal,
		CreditLimit:    req.CreditLimit,
		UpdatedAt:      nowMillis(),
		SyncVersion:    1,
		LastModifiedBy: modifiedBy(req.LastModifiedBy),
		CreatedAt:      time.Now(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	record := accountToRecord(account, false)
	return &record, nil
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*dto.AccountRecord, error) {
	account, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	record := accountToRecord(account, false)
	return &record, nil
}

func (s *AccountService) List(ctx context.Context) ([]dto.AccountRecord, error) {
	accounts, err := s.accounts.List(ctx, false)
	if err != nil {
		return nil, err
	}
	records := make([]dto.AccountRecord, 0, len(accounts))
	for _, account := range accounts {
		records = append(records, accountToRecord(account, false))
	}
	return records, nil
}

func (s *AccountService) Update(ctx context.Context, id uuid.UUID, req *dto.AccountRequest) (*dto.AccountRecord, error) {
	account, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Type != "" {
		accountType := models.AccountType(req.Type)
		if accountType != models.AccountTypeDebit && accountType != models.AccountTypeCredit {
			return nil, ErrInvalidType
		}
		account.Type = accountType
	}

	account.Name = sanitizeUTF8(req.Name)
	account.Description = sanitizeUTF8(req.Description)
	account.Balance = req.Balance
	account.Icon = req.Icon
	account.Color = req.Color
	if req.IncludeInTotal != nil {
		account.IncludeInTotal = *req.IncludeInTotal
	}
	account.CreditLimit = req.CreditLimit
	account.UpdatedAt = nowMillis()
	account.SyncVersion++
	account.LastModifiedBy = modifiedBy(req.LastModifiedBy)

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	record := accountToRecord(account, false)
	return &record, nil
}

func (s *AccountService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.getActive(ctx, id); err != nil {
		return err
	}
	return s.accounts.SoftDelete(ctx, id, nowMillis())
}

func (s *AccountService) getActive(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if account.IsDeleted {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func modifiedBy(value string) string {
	if value == "" {
		return "server"
	}
	return value
}
