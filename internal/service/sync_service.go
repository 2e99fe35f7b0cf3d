package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncService reconciles intermittently connected client replicas with the
// server collections. Resolution is field-level last-writer-wins on the
// updatedAt millisecond timestamp; content hashes only suppress re-sending
// records that did not really change. Conflicts are surfaced as data in the
// response, never as transport errors, and no sync path ever hard-deletes.
type SyncService struct {
	accounts     repository.AccountRepository
	categories   repository.CategoryRepository
	transactions repository.TransactionRepository
	maintainer   *BalanceMaintainer
	cache        *cache.Cache
	logger       *zap.Logger
}

func NewSyncService(
	accounts repository.AccountRepository,
	categories repository.CategoryRepository,
	transactions repository.TransactionRepository,
	maintainer *BalanceMaintainer,
	c *cache.Cache,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		accounts:     accounts,
		categories:   categories,
		transactions: transactions,
		maintainer:   maintainer,
		cache:        c,
		logger:       logger,
	}
}

// --- Pull ---

func (s *SyncService) PullAccounts(ctx context.Context, req *dto.SyncPullRequest) (*dto.AccountPullResponse, error) {
	changed, err := s.accounts.ChangedSince(ctx, req.LastSyncTimestamp)
	if err != nil {
		return nil, err
	}

	records := make([]dto.AccountRecord, 0, len(changed))
	for _, account := range changed {
		if req.Hashes[account.ID.String()] == hashAccount(account) {
			continue
		}
		records = append(records, accountToRecord(account, true))
	}

	return &dto.AccountPullResponse{Records: records, ServerTime: nowMillis()}, nil
}

func (s *SyncService) PullCategories(ctx context.Context, req *dto.SyncPullRequest) (*dto.CategoryPullResponse, error) {
	changed, err := s.categories.ChangedSince(ctx, req.LastSyncTimestamp)
	if err != nil {
		return nil, err
	}

	records := make([]dto.CategoryRecord, 0, len(changed))
	for _, category := range changed {
		if req.Hashes[category.ID.String()] == hashCategory(category) {
			continue
		}
		records = append(records, categoryToRecord(category, true))
	}

	return &dto.CategoryPullResponse{Records: records, ServerTime: nowMillis()}, nil
}

func (s *SyncService) PullTransactions(ctx context.Context, req *dto.SyncPullRequest) (*dto.TransactionPullResponse, error) {
	changed, err := s.transactions.ChangedSince(ctx, req.LastSyncTimestamp)
	if err != nil {
		return nil, err
	}

	records := make([]dto.TransactionRecord, 0, len(changed))
	for _, tx := range changed {
		if req.Hashes[tx.ID.String()] == hashTransaction(tx) {
			continue
		}
		records = append(records, transactionToRecord(tx, true))
	}

	return &dto.TransactionPullResponse{Records: records, ServerTime: nowMillis()}, nil
}

// --- Per-entity push (last-writer-wins) ---

// clientWins decides a per-record push: the incoming write applies when its
// timestamp is strictly newer, or when timestamps tie but content diverged.
// Anything older is skipped; the server copy is authoritative and unchanged.
func clientWins(clientUpdatedAt, serverUpdatedAt int64, clientHash, serverHash string) bool {
	if clientUpdatedAt > serverUpdatedAt {
		return true
	}
	return clientUpdatedAt == serverUpdatedAt && clientHash != serverHash
}

func (s *SyncService) PushAccounts(ctx context.Context, req *dto.AccountPushRequest) (*dto.SyncPushResult, error) {
	result := newPushResult()
	for i := range req.Records {
		rec := &req.Records[i]
		incoming, err := recordToAccount(rec)
		if err != nil {
			s.rejectRecord(result, rec.ID, "Malformed account push record", err)
			continue
		}
		if incoming.UpdatedAt == 0 {
			incoming.UpdatedAt = nowMillis()
		}

		server, err := s.accounts.GetByID(ctx, incoming.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if incoming.SyncVersion == 0 {
				incoming.SyncVersion = 1
			}
			if err := s.accounts.Create(ctx, incoming); err != nil {
				s.rejectRecord(result, rec.ID, "Account push insert failed", err)
				continue
			}
			result.Accepted = append(result.Accepted, rec.ID)
		case err != nil:
			s.rejectRecord(result, rec.ID, "Account push lookup failed", err)
		default:
			if !clientWins(incoming.UpdatedAt, server.UpdatedAt, hashAccount(incoming), hashAccount(server)) {
				result.Skipped = append(result.Skipped, rec.ID)
				continue
			}
			incoming.SyncVersion = server.SyncVersion + 1
			if err := s.accounts.Update(ctx, incoming); err != nil {
				s.rejectRecord(result, rec.ID, "Account push update failed", err)
				continue
			}
			result.Accepted = append(result.Accepted, rec.ID)
		}
	}
	return result, nil
}

func (s *SyncService) PushCategories(ctx context.Context, req *dto.CategoryPushRequest) (*dto.SyncPushResult, error) {
	result := newPushResult()
	for i := range req.Records {
		rec := &req.Records[i]
		incoming, err := recordToCategory(rec)
		if err != nil {
			s.rejectRecord(result, rec.ID, "Malformed category push record", err)
			continue
		}
		if incoming.UpdatedAt == 0 {
			incoming.UpdatedAt = nowMillis()
		}
		if err := s.ensureNoParentCycle(ctx, incoming.ID, incoming.ParentID); err != nil {
			s.rejectRecord(result, rec.ID, "Category push parent rejected", err)
			continue
		}

		server, err := s.categories.GetByID(ctx, incoming.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if incoming.SyncVersion == 0 {
				incoming.SyncVersion = 1
			}
			// Counters are server-owned and rebuilt from synced transactions.
			incoming.Balance = 0
			incoming.DirectBalance = 0
			incoming.TransactionCount = 0
			incoming.DirectTransactionCount = 0
			if err := s.categories.Create(ctx, incoming); err != nil {
				s.rejectRecord(result, rec.ID, "Category push insert failed", err)
				continue
			}
			result.Accepted = append(result.Accepted, rec.ID)
		case err != nil:
			s.rejectRecord(result, rec.ID, "Category push lookup failed", err)
		default:
			if !clientWins(incoming.UpdatedAt, server.UpdatedAt, hashCategory(incoming), hashCategory(server)) {
				result.Skipped = append(result.Skipped, rec.ID)
				continue
			}
			// Maintained counters are server-owned; a client overwrite must
			// not clobber them with stale values.
			incoming.Balance = server.Balance
			incoming.DirectBalance = server.DirectBalance
			incoming.TransactionCount = server.TransactionCount
			incoming.DirectTransactionCount = server.DirectTransactionCount
			incoming.SyncVersion = server.SyncVersion + 1
			if err := s.categories.Update(ctx, incoming); err != nil {
				s.rejectRecord(result, rec.ID, "Category push update failed", err)
				continue
			}
			s.propagateCategoryChanges(ctx, server, incoming)
			result.Accepted = append(result.Accepted, rec.ID)
		}
	}
	return result, nil
}

func (s *SyncService) PushTransactions(ctx context.Context, req *dto.TransactionPushRequest) (*dto.SyncPushResult, error) {
	result := newPushResult()
	applied := false
	for i := range req.Records {
		rec := &req.Records[i]
		incoming, err := recordToTransaction(rec)
		if err != nil {
			s.rejectRecord(result, rec.ID, "Malformed transaction push record", err)
			continue
		}
		if incoming.UpdatedAt == 0 {
			incoming.UpdatedAt = nowMillis()
		}

		server, err := s.transactions.GetByID(ctx, incoming.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if incoming.SyncVersion == 0 {
				incoming.SyncVersion = 1
			}
			if err := s.transactions.Create(ctx, incoming); err != nil {
				s.rejectRecord(result, rec.ID, "Transaction push insert failed", err)
				continue
			}
			s.maintainer.OnTransactionCreated(ctx, incoming)
			result.Accepted = append(result.Accepted, rec.ID)
			applied = true
		case err != nil:
			s.rejectRecord(result, rec.ID, "Transaction push lookup failed", err)
		default:
			if !clientWins(incoming.UpdatedAt, server.UpdatedAt, hashTransaction(incoming), hashTransaction(server)) {
				result.Skipped = append(result.Skipped, rec.ID)
				continue
			}
			incoming.SyncVersion = server.SyncVersion + 1
			if err := s.transactions.Update(ctx, incoming); err != nil {
				s.rejectRecord(result, rec.ID, "Transaction push update failed", err)
				continue
			}
			s.maintainer.OnTransactionUpdated(ctx, server, incoming)
			result.Accepted = append(result.Accepted, rec.ID)
			applied = true
		}
	}
	if applied && s.cache != nil {
		s.cache.ClearAggregates()
	}
	return result, nil
}

func newPushResult() *dto.SyncPushResult {
	return &dto.SyncPushResult{
		Accepted: []string{},
		Skipped:  []string{},
		Rejected: []dto.SyncRecordError{},
	}
}

func (s *SyncService) rejectRecord(result *dto.SyncPushResult, id, msg string, err error) {
	s.logger.Warn(msg, zap.String("id", id), zap.Error(err))
	result.Rejected = append(result.Rejected, dto.SyncRecordError{ID: id, Error: err.Error()})
}

// ensureNoParentCycle rejects a client-supplied parent whose ancestor chain
// passes back through the category. A parent missing server-side is allowed
// here: it may simply not have synced yet, and an absent row cannot close a
// cycle.
func (s *SyncService) ensureNoParentCycle(ctx context.Context, categoryID uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if *parentID == categoryID {
		return ErrCategoryCycle
	}

	visited := map[uuid.UUID]bool{categoryID: true}
	current := *parentID
	for {
		if visited[current] {
			return ErrCategoryCycle
		}
		visited[current] = true

		node, err := s.categories.GetByID(ctx, current)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		if node.ParentID == nil {
			return nil
		}
		current = *node.ParentID
	}
}

// propagateCategoryChanges keeps the maintained ancestor totals in step with
// a category overwrite that changed the parent or the deletion flag.
func (s *SyncService) propagateCategoryChanges(ctx context.Context, server, incoming *models.Category) {
	switch {
	case !server.IsDeleted && incoming.IsDeleted:
		s.maintainer.OnCategorySoftDeleted(ctx, server)
	case server.IsDeleted && !incoming.IsDeleted:
		s.maintainer.OnCategoryRestored(ctx, incoming)
	case !sameParent(server.ParentID, incoming.ParentID):
		s.maintainer.OnCategoryReparented(ctx, incoming, server.ParentID)
	}
}

// --- Generic operations push ---

// PushOperations processes typed CREATE/UPDATE/DELETE operations. Every
// operation lands in exactly one of accepted, rejected, or conflicts: a
// conflict means the server version won and the client must reconcile; a
// rejection is a hard processing error. A conflicting DELETE leaves the
// record in place.
func (s *SyncService) PushOperations(ctx context.Context, req *dto.SyncOperationsRequest) *dto.SyncOperationsResult {
	result := &dto.SyncOperationsResult{
		Accepted:  []string{},
		Rejected:  []dto.SyncRejection{},
		Conflicts: []dto.SyncConflict{},
	}

	applied := false
	for i := range req.Operations {
		op := &req.Operations[i]
		var err error
		switch op.Resource {
		case dto.SyncResourceAccount:
			err = s.applyAccountOperation(ctx, op, result)
		case dto.SyncResourceCategory:
			err = s.applyCategoryOperation(ctx, op, result)
		case dto.SyncResourceTransaction:
			err = s.applyTransactionOperation(ctx, op, result)
			if err == nil {
				applied = true
			}
		default:
			err = fmt.Errorf("unknown resource %q", op.Resource)
		}
		if err != nil {
			result.Rejected = append(result.Rejected, dto.SyncRejection{
				OperationID: op.OperationID,
				Error:       err.Error(),
			})
		}
	}

	if applied && s.cache != nil {
		s.cache.ClearAggregates()
	}
	return result
}

// applyAccountOperation returns a non-nil error only for hard failures; the
// accepted and conflict outcomes are recorded directly on result.
func (s *SyncService) applyAccountOperation(ctx context.Context, op *dto.SyncOperation, result *dto.SyncOperationsResult) error {
	switch op.Type {
	case dto.SyncOpCreate, dto.SyncOpUpdate:
		var rec dto.AccountRecord
		if err := json.Unmarshal(op.Data, &rec); err != nil {
			return fmt.Errorf("decode account data: %w", err)
		}
		incoming, err := recordToAccount(&rec)
		if err != nil {
			return err
		}
		s.fillOperationTimestamp(op, &incoming.UpdatedAt)

		server, err := s.accounts.GetByID(ctx, incoming.ID)
		if op.Type == dto.SyncOpCreate {
			if err == nil {
				result.Conflicts = append(result.Conflicts, accountConflict(op, server))
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if incoming.SyncVersion == 0 {
				incoming.SyncVersion = 1
			}
			if err := s.accounts.Create(ctx, incoming); err != nil {
				return err
			}
			result.Accepted = append(result.Accepted, op.OperationID)
			return nil
		}
		// UPDATE
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("account %s not found", incoming.ID)
		}
		if err != nil {
			return err
		}
		if server.UpdatedAt > op.LocalTimestamp {
			result.Conflicts = append(result.Conflicts, accountConflict(op, server))
			return nil
		}
		incoming.SyncVersion = server.SyncVersion + 1
		if err := s.accounts.Update(ctx, incoming); err != nil {
			return err
		}
		result.Accepted = append(result.Accepted, op.OperationID)
		return nil

	case dto.SyncOpDelete:
		id, err := decodeOperationID(op.Data)
		if err != nil {
			return err
		}
		server, err := s.accounts.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("account %s not found", id)
		}
		if err != nil {
			return err
		}
		if server.UpdatedAt > op.LocalTimestamp {
			result.Conflicts = append(result.Conflicts, accountConflict(op, server))
			return nil
		}
		if !server.IsDeleted {
			if err := s.accounts.SoftDelete(ctx, id, nowMillis()); err != nil {
				return err
			}
		}
		result.Accepted = append(result.Accepted, op.OperationID)
		return nil

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func (s *SyncService) applyCategoryOperation(ctx context.Context, op *dto.SyncOperation, result *dto.SyncOperationsResult) error {
	switch op.Type {
	case dto.SyncOpCreate, dto.SyncOpUpdate:
		var rec dto.CategoryRecord
		if err := json.Unmarshal(op.Data, &rec); err != nil {
			return fmt.Errorf("decode category data: %w", err)
		}
		incoming, err := recordToCategory(&rec)
		if err != nil {
			return err
		}
		s.fillOperationTimestamp(op, &incoming.UpdatedAt)
		if err := s.ensureNoParentCycle(ctx, incoming.ID, incoming.ParentID); err != nil {
			return err
		}

		server, err := s.categories.GetByID(ctx, incoming.ID)
		if op.Type == dto.SyncOpCreate {
			if err == nil {
				result.Conflicts = append(result.Conflicts, categoryConflict(op, server))
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if incoming.SyncVersion == 0 {
				incoming.SyncVersion = 1
			}
			// Counters are server-owned and rebuilt from synced transactions.
			incoming.Balance = 0
			incoming.DirectBalance = 0
			incoming.TransactionCount = 0
			incoming.DirectTransactionCount = 0
			if err := s.categories.Create(ctx, incoming); err != nil {
				return err
			}
			result.Accepted = append(result.Accepted, op.OperationID)
			return nil
		}
		// UPDATE
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("category %s not found", incoming.ID)
		}
		if err != nil {
			return err
		}
		if server.UpdatedAt > op.LocalTimestamp {
			result.Conflicts = append(result.Conflicts, categoryConflict(op, server))
			return nil
		}
		incoming.Balance = server.Balance
		incoming.DirectBalance = server.DirectBalance
		incoming.TransactionCount = server.TransactionCount
		incoming.DirectTransactionCount = server.DirectTransactionCount
		incoming.SyncVersion = server.SyncVersion + 1
		if err := s.categories.Update(ctx, incoming); err != nil {
			return err
		}
		s.propagateCategoryChanges(ctx, server, incoming)
		result.Accepted = append(result.Accepted, op.OperationID)
		return nil

	case dto.SyncOpDelete:
		id, err := decodeOperationID(op.Data)
		if err != nil {
			return err
		}
		server, err := s.categories.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("category %s not found", id)
		}
		if err != nil {
			return err
		}
		if server.UpdatedAt > op.LocalTimestamp {
			result.Conflicts = append(result.Conflicts, categoryConflict(op, server))
			return nil
		}
		if !server.IsDeleted {
			if err := s.categories.SoftDelete(ctx, id, nowMillis()); err != nil {
				return err
			}
			s.maintainer.OnCategorySoftDeleted(ctx, server)
		}
		result.Accepted = append(result.Accepted, op.OperationID)
		return nil

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func (s *SyncService) applyTransactionOperation(ctx context.Context, op *dto.SyncOperation, result *dto.SyncOperationsResult) error {
	switch op.Type {
	case dto.SyncOpCreate, dto.SyncOpUpdate:
		var rec dto.TransactionRecord
		if err := json.Unmarshal(op.Data, &rec); err != nil {
			return fmt.Errorf("decode transaction data: %w", err)
		}
		incoming, err := recordToTransaction(&rec)
		if err != nil {
			return err
		}
		s.fillOperationTimestamp(op, &incoming.UpdatedAt)

		server, err := s.transactions.GetByID(ctx, incoming.ID)
		if op.Type == dto.SyncOpCreate {
			if err == nil {
				result.Conflicts = append(result.Conflicts, transactionConflict(op, server))
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if incoming.SyncVersion == 0 {
				incoming.SyncVersion = 1
			}
			if err := s.transactions.Create(ctx, incoming); err != nil {
				return err
			}
			s.maintainer.OnTransactionCreated(ctx, incoming)
			result.Accepted = append(result.Accepted, op.OperationID)
			return nil
		}
		// UPDATE
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("transaction %s not found", incoming.ID)
		}
		if err != nil {
			return err
		}
		if server.UpdatedAt > op.LocalTimestamp {
			result.Conflicts = append(result.Conflicts, transactionConflict(op, server))
			return nil
		}
		incoming.SyncVersion = server.SyncVersion + 1
		if err := s.transactions.Update(ctx, incoming); err != nil {
			return err
		}
		s.maintainer.OnTransactionUpdated(ctx, server, incoming)
		result.Accepted = append(result.Accepted, op.OperationID)
		return nil

	case dto.SyncOpDelete:
		id, err := decodeOperationID(op.Data)
		if err != nil {
			return err
		}
		server, err := s.transactions.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("transaction %s not found", id)
		}
		if err != nil {
			return err
		}
		if server.UpdatedAt > op.LocalTimestamp {
			result.Conflicts = append(result.Conflicts, transactionConflict(op, server))
			return nil
		}
		if !server.IsDeleted {
			if err := s.transactions.SoftDelete(ctx, id, time.Now(), nowMillis()); err != nil {
				return err
			}
			s.maintainer.OnTransactionSoftDeleted(ctx, server)
		}
		result.Accepted = append(result.Accepted, op.OperationID)
		return nil

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

// fillOperationTimestamp defaults a record's updatedAt to the operation's
// localTimestamp, then to server time.
func (s *SyncService) fillOperationTimestamp(op *dto.SyncOperation, target *int64) {
	if *target != 0 {
		return
	}
	if op.LocalTimestamp != 0 {
		*target = op.LocalTimestamp
		return
	}
	*target = nowMillis()
}

func decodeOperationID(data json.RawMessage) (uuid.UUID, error) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return uuid.Nil, fmt.Errorf("decode operation data: %w", err)
	}
	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", payload.ID, err)
	}
	return id, nil
}

func accountConflict(op *dto.SyncOperation, server *models.Account) dto.SyncConflict {
	return dto.SyncConflict{
		OperationID:  op.OperationID,
		Resource:     op.Resource,
		ServerRecord: accountToRecord(server, true),
	}
}

func categoryConflict(op *dto.SyncOperation, server *models.Category) dto.SyncConflict {
	return dto.SyncConflict{
		OperationID:  op.OperationID,
		Resource:     op.Resource,
		ServerRecord: categoryToRecord(server, true),
	}
}

func transactionConflict(op *dto.SyncOperation, server *models.Transaction) dto.SyncConflict {
	return dto.SyncConflict{
		OperationID:  op.OperationID,
		Resource:     op.Resource,
		ServerRecord: transactionToRecord(server, true),
	}
}

// --- Changes feed and status ---

func (s *SyncService) Changes(ctx context.Context, since int64) (*dto.SyncChangesResponse, error) {
	accounts, err := s.accounts.ChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.ChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactions.ChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	resp := &dto.SyncChangesResponse{
		Accounts:     make([]dto.AccountRecord, 0, len(accounts)),
		Categories:   make([]dto.CategoryRecord, 0, len(categories)),
		Transactions: make([]dto.TransactionRecord, 0, len(transactions)),
		ServerTime:   nowMillis(),
	}
	for _, account := range accounts {
		resp.Accounts = append(resp.Accounts, accountToRecord(account, true))
	}
	for _, category := range categories {
		resp.Categories = append(resp.Categories, categoryToRecord(category, true))
	}
	for _, tx := range transactions {
		resp.Transactions = append(resp.Transactions, transactionToRecord(tx, true))
	}
	return resp, nil
}

// Status is a lightweight health check for clients: non-deleted account and transaction
// counts, all categories, and server wall-clock.
func (s *SyncService) Status(ctx context.Context) (*dto.SyncStatusResponse, error) {
	accounts, err := s.accounts.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactions.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.SyncStatusResponse{
		Accounts:     accounts,
		Categories:   categories,
		Transactions: transactions,
		ServerTime:   nowMillis(),
	}, nil
}
