package repository

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// TransactionFilter narrows transaction listings. Nil fields are ignored.
type TransactionFilter struct {
	FromAccountID  *uuid.UUID
	ToAccountID    *uuid.UUID
	CategoryID     *uuid.UUID
	FromDate       *time.Time
	ToDate         *time.Time
	IncludeDeleted bool
}

// CategoryTotals is a grouped sum/count over transactions.
type CategoryTotals struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	List(ctx context.Context, includeDeleted bool) ([]*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	// AdjustBalance applies a signed delta as a single atomic statement,
	// bumping updatedAt and syncVersion in the same write.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta float64, updatedAt int64) error
	SetBalance(ctx context.Context, id uuid.UUID, balance float64, updatedAt int64) error
	SoftDelete(ctx context.Context, id uuid.UUID, updatedAt int64) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	CountActive(ctx context.Context) (int64, error)
	ChangedSince(ctx context.Context, since int64) ([]*models.Account, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Children(ctx context.Context, parentID uuid.UUID) ([]*models.Category, error)
	// DescendantIDs returns every category below root, any depth, root excluded.
	DescendantIDs(ctx context.Context, rootID uuid.UUID) ([]uuid.UUID, error)
	// AdjustCounters applies signed deltas to the maintained counters.
	AdjustCounters(ctx context.Context, id uuid.UUID, directBalanceDelta, balanceDelta float64, directCountDelta, countDelta int64, updatedAt int64) error
	SetCounters(ctx context.Context, id uuid.UUID, directBalance, balance float64, directCount, count int64, updatedAt int64) error
	SoftDelete(ctx context.Context, id uuid.UUID, updatedAt int64) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	CountAll(ctx context.Context) (int64, error)
	ChangedSince(ctx context.Context, since int64) ([]*models.Category, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time, updatedAt int64) error
	Restore(ctx context.Context, id uuid.UUID, updatedAt int64) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	// SumIncoming totals non-deleted transactions whose toAccount is the given
	// account; SumOutgoing the same for fromAccount. Empty result is 0.
	SumIncoming(ctx context.Context, accountID uuid.UUID, from, to *time.Time) (float64, error)
	SumOutgoing(ctx context.Context, accountID uuid.UUID, from, to *time.Time) (float64, error)
	SumByCategories(ctx context.Context, categoryIDs []uuid.UUID, from, to *time.Time) (CategoryTotals, error)
	// ListByAccount returns every non-deleted transaction touching the account
	// on either side, for full balance recompute.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error)
	CountActive(ctx context.Context) (int64, error)
	ChangedSince(ctx context.Context, since int64) ([]*models.Transaction, error)
}

type RepairRepository interface {
	Enqueue(ctx context.Context, entityType string, entityID uuid.UUID, lastError string) error
	DequeueBatch(ctx context.Context, limit int) ([]*models.RepairItem, error)
	Delete(ctx context.Context, id int64) error
	MarkAttempt(ctx context.Context, id int64, lastError string) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
