package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
)

// In-memory repository fakes backing the service tests. They mirror the SQL
// behavior the services rely on: copy-on-read, atomic counter adjustments,
// and inclusive date bounds. The fail* switches simulate storage errors for
// the fallback and repair paths.

var errStorage = errors.New("storage failure")

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{items: make(map[uuid.UUID]*models.Account)}
}

type memAccountRepo struct {
	mu         sync.Mutex
	items      map[uuid.UUID]*models.Account
	failAdjust bool
	failSet    bool
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (r *memAccountRepo) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[account.ID] = cloneAccount(account)
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *memAccountRepo) List(_ context.Context, includeDeleted bool) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Account
	for _, a := range r.items {
		if !includeDeleted && a.IsDeleted {
			continue
		}
		out = append(out, cloneAccount(a))
	}
	return out, nil
}

func (r *memAccountRepo) Update(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[account.ID]; !ok {
		return repository.ErrNotFound
	}
	r.items[account.ID] = cloneAccount(account)
	return nil
}

func (r *memAccountRepo) AdjustBalance(_ context.Context, id uuid.UUID, delta float64, updatedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAdjust {
		return errStorage
	}
	a, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Balance += delta
	a.UpdatedAt = updatedAt
	a.SyncVersion++
	return nil
}

func (r *memAccountRepo) SetBalance(_ context.Context, id uuid.UUID, balance float64, updatedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet {
		return errStorage
	}
	a, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Balance = balance
	a.UpdatedAt = updatedAt
	a.SyncVersion++
	return nil
}

func (r *memAccountRepo) SoftDelete(_ context.Context, id uuid.UUID, updatedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsDeleted = true
	a.UpdatedAt = updatedAt
	a.SyncVersion++
	return nil
}

func (r *memAccountRepo) HardDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memAccountRepo) CountActive(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.items {
		if !a.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (r *memAccountRepo) ChangedSince(_ context.Context, since int64) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Account
	for _, a := range r.items {
		if a.UpdatedAt > since {
			out = append(out, cloneAccount(a))
		}
	}
	return out, nil
}

func newMemCategoryRepo() *memCategoryRepo {
	return &memCategoryRepo{items: make(map[uuid.UUID]*models.Category)}
}

type memCategoryRepo struct {
	mu         sync.Mutex
	items      map[uuid.UUID]*models.Category
	failAdjust bool
	failSet    bool
}

func cloneCategory(c *models.Category) *models.Category {
	cp := *c
	return &cp
}

func (r *memCategoryRepo) Create(_ context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[category.ID] = cloneCategory(category)
	return nil
}

func (r *memCategoryRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCategory(c), nil
}

func (r *memCategoryRepo) List(_ context.Context) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Category
	for _, c := range r.items {
		out = append(out, cloneCategory(c))
	}
	return out, nil
}

func (r *memCategoryRepo) Update(_ context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[category.ID]; !ok {
		return repository.ErrNotFound
	}
	r.items[category.ID] = cloneCategory(category)
	return nil
}

func (r *memCategoryRepo) Children(_ context.Context, parentID uuid.UUID) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Category
	for _, c := range r.items {
		if c.ParentID != nil && *c.ParentID == parentID && !c.IsDeleted {
			out = append(out, cloneCategory(c))
		}
	}
	return out, nil
}

func (r *memCategoryRepo) DescendantIDs(_ context.Context, rootID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	frontier := []uuid.UUID{rootID}
	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, c := range r.items {
			if c.IsDeleted || c.ParentID == nil {
				continue
			}
			for _, parent := range frontier {
				if *c.ParentID == parent {
					out = append(out, c.ID)
					next = append(next, c.ID)
					break
				}
			}
		}
		frontier = next
	}
	return out, nil
}

func (r *memCategoryRepo) AdjustCounters(_ context.Context, id uuid.UUID, directBalanceDelta, balanceDelta float64, directCountDelta, countDelta int64, updatedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAdjust {
		return errStorage
	}
	c, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.DirectBalance += directBalanceDelta
	c.Balance += balanceDelta
	c.DirectTransactionCount += directCountDelta
	c.TransactionCount += countDelta
	c.UpdatedAt = updatedAt
	c.SyncVersion++
	return nil
}

func (r *memCategoryRepo) SetCounters(_ context.Context, id uuid.UUID, directBalance, balance float64, directCount, count int64, updatedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet {
		return errStorage
	}
	c, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.DirectBalance = directBalance
	c.Balance = balance
	c.DirectTransactionCount = directCount
	c.TransactionCount = count
	c.UpdatedAt = updatedAt
	c.SyncVersion++
	return nil
}

func (r *memCategoryRepo) SoftDelete(_ context.Context, id uuid.UUID, updatedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsDeleted = true
	c.UpdatedAt = updatedAt
	c.SyncVersion++
	return nil
}

func (r *memCategoryRepo) HardDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memCategoryRepo) CountAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *memCategoryRepo) ChangedSince(_ context.Context, since int64) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Category
	for _, c := range r.items {
		if c.UpdatedAt > since {
			out = append(out, cloneCategory(c))
		}
	}
	return out, nil
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{items: make(map[uuid.UUID]*models.Transaction)}
}

type memTransactionRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Transaction
}

func cloneTransaction(t *models.Transaction) *models.Transaction {
	c := *t
	return &c
}

func inDateRange(date time.Time, from, to *time.Time) bool {
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && date.After(*to) {
		return false
	}
	return true
}

func (r *memTransactionRepo) Create(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[tx.ID] = cloneTransaction(tx)
	return nil
}

func (r *memTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTransaction(t), nil
}

func (r *memTransactionRepo) List(_ context.Context, filter repository.TransactionFilter) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Transaction
	for _, t := range r.items {
		if !filter.IncludeDeleted && t.IsDeleted {
			continue
		}
		if filter.FromAccountID != nil && t.FromAccountID != *filter.FromAccountID {
			continue
		}
		if filter.ToAccountID != nil && (t.ToAccountID == nil || *t.ToAccountID != *filter.ToAccountID) {
			continue
		}
		if filter.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *filter.CategoryID) {
			continue
		}
		if !inDateRange(t.TransactionDate, filter.FromDate, filter.ToDate) {
			continue
		}
		out = append(out, cloneTransaction(t))
	}
	return out, nil
}

func (r *memTransactionRepo) Update(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tx.ID]; !ok {
		return repository.ErrNotFound
	}
	r.items[tx.ID] = cloneTransaction(tx)
	return nil
}

func (r *memTransactionRepo) SoftDelete(_ context.Context, id uuid.UUID, deletedAt time.Time, updatedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.IsDeleted = true
	t.DeletedAt = &deletedAt
	t.UpdatedAt = updatedAt
	t.SyncVersion++
	return nil
}

func (r *memTransactionRepo) Restore(_ context.Context, id uuid.UUID, updatedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok || !t.IsDeleted {
		return repository.ErrNotFound
	}
	t.IsDeleted = false
	t.DeletedAt = nil
	t.UpdatedAt = updatedAt
	t.SyncVersion++
	return nil
}

func (r *memTransactionRepo) HardDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memTransactionRepo) SumIncoming(_ context.Context, accountID uuid.UUID, from, to *time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, t := range r.items {
		if t.IsDeleted || t.ToAccountID == nil || *t.ToAccountID != accountID {
			continue
		}
		if inDateRange(t.TransactionDate, from, to) {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (r *memTransactionRepo) SumOutgoing(_ context.Context, accountID uuid.UUID, from, to *time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, t := range r.items {
		if t.IsDeleted || t.FromAccountID != accountID {
			continue
		}
		if inDateRange(t.TransactionDate, from, to) {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (r *memTransactionRepo) SumByCategories(_ context.Context, categoryIDs []uuid.UUID, from, to *time.Time) (repository.CategoryTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var totals repository.CategoryTotals
	if len(categoryIDs) == 0 {
		return totals, nil
	}
	wanted := make(map[uuid.UUID]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		wanted[id] = true
	}
	for _, t := range r.items {
		if t.IsDeleted || t.CategoryID == nil || !wanted[*t.CategoryID] {
			continue
		}
		if inDateRange(t.TransactionDate, from, to) {
			totals.Total += t.Amount
			totals.Count++
		}
	}
	return totals, nil
}

func (r *memTransactionRepo) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Transaction
	for _, t := range r.items {
		if t.IsDeleted {
			continue
		}
		if t.FromAccountID == accountID || (t.ToAccountID != nil && *t.ToAccountID == accountID) {
			out = append(out, cloneTransaction(t))
		}
	}
	return out, nil
}

func (r *memTransactionRepo) CountActive(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.items {
		if !t.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (r *memTransactionRepo) ChangedSince(_ context.Context, since int64) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Transaction
	for _, t := range r.items {
		if t.UpdatedAt > since {
			out = append(out, cloneTransaction(t))
		}
	}
	return out, nil
}

func newMemRepairRepo() *memRepairRepo {
	return &memRepairRepo{}
}

type memRepairRepo struct {
	mu     sync.Mutex
	nextID int64
	items  []*models.RepairItem
}

func (r *memRepairRepo) Enqueue(_ context.Context, entityType string, entityID uuid.UUID, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.EntityType == entityType && item.EntityID == entityID {
			item.LastError = lastError
			return nil
		}
	}
	r.nextID++
	r.items = append(r.items, &models.RepairItem{
		ID:         r.nextID,
		EntityType: entityType,
		EntityID:   entityID,
		LastError:  lastError,
		EnqueuedAt: time.Now(),
	})
	return nil
}

func (r *memRepairRepo) DequeueBatch(_ context.Context, limit int) ([]*models.RepairItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RepairItem
	for _, item := range r.items {
		if len(out) >= limit {
			break
		}
		c := *item
		out = append(out, &c)
	}
	return out, nil
}

func (r *memRepairRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memRepairRepo) MarkAttempt(_ context.Context, id int64, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			item.Attempts++
			item.LastError = lastError
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memRepairRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{items: make(map[uuid.UUID]*models.User)}
}

type memUserRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.User
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *user
	r.items[user.ID] = &c
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}
