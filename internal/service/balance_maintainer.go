package service

import (
	"context"
	"fmt"

	"fintrack/internal/models"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BalanceMaintainer keeps the maintained aggregates (Account.Balance and the
// category counters) in step with the effective transaction set, one signed
// delta per mutation instead of a table scan per write.
//
// Maintenance is best-effort by contract: the ledger write has already
// succeeded when these hooks run, so a failed increment never propagates to
// the caller. Instead the maintainer falls back to a full recompute of every
// touched account and category, and anything the recompute cannot fix is
// queued for the background repair worker.
type BalanceMaintainer struct {
	accounts     repository.AccountRepository
	categories   repository.CategoryRepository
	transactions repository.TransactionRepository
	repairs      repository.RepairRepository
	logger       *zap.Logger
}

func NewBalanceMaintainer(
	accounts repository.AccountRepository,
	categories repository.CategoryRepository,
	transactions repository.TransactionRepository,
	repairs repository.RepairRepository,
	logger *zap.Logger,
) *BalanceMaintainer {
	return &BalanceMaintainer{
		accounts:     accounts,
		categories:   categories,
		transactions: transactions,
		repairs:      repairs,
		logger:       logger,
	}
}

func (m *BalanceMaintainer) OnTransactionCreated(ctx context.Context, tx *models.Transaction) {
	if tx.IsDeleted {
		return
	}
	if err := m.applyEffect(ctx, tx, +1); err != nil {
		m.recover(ctx, err, tx)
	}
}

func (m *BalanceMaintainer) OnTransactionSoftDeleted(ctx context.Context, tx *models.Transaction) {
	if err := m.applyEffect(ctx, tx, -1); err != nil {
		m.recover(ctx, err, tx)
	}
}

func (m *BalanceMaintainer) OnTransactionHardDeleted(ctx context.Context, tx *models.Transaction) {
	// A soft-deleted row contributed nothing, so removal needs no reversal.
	if tx.IsDeleted {
		return
	}
	if err := m.applyEffect(ctx, tx, -1); err != nil {
		m.recover(ctx, err, tx)
	}
}

// OnTransactionUpdated reverses the old effect and applies the new one as two
// independent incremental operations, not a diff. Deletion-state transitions
// apply only the relevant side.
func (m *BalanceMaintainer) OnTransactionUpdated(ctx context.Context, old, updated *models.Transaction) {
	switch {
	case !old.IsDeleted && !updated.IsDeleted:
		if err := m.applyEffect(ctx, old, -1); err != nil {
			m.recover(ctx, err, old, updated)
			return
		}
		if err := m.applyEffect(ctx, updated, +1); err != nil {
			m.recover(ctx, err, old, updated)
		}
	case !old.IsDeleted && updated.IsDeleted:
		if err := m.applyEffect(ctx, old, -1); err != nil {
			m.recover(ctx, err, old)
		}
	case old.IsDeleted && !updated.IsDeleted:
		if err := m.applyEffect(ctx, updated, +1); err != nil {
			m.recover(ctx, err, updated)
		}
	}
}

func (m *BalanceMaintainer) applyEffect(ctx context.Context, tx *models.Transaction, sign float64) error {
	now := nowMillis()

	// The two sides of a transfer touch disjoint rows, so their increments can
	// run concurrently.
	g, gctx := errgroup.WithContext(ctx)
	for accountID, delta := range tx.AccountDeltas() {
		accountID, delta := accountID, delta
		g.Go(func() error {
			return m.accounts.AdjustBalance(gctx, accountID, delta*sign, now)
		})
	}
	accountErr := g.Wait()

	var categoryErr error
	if tx.CategoryID != nil {
		categoryErr = m.applyCategoryEffect(ctx, *tx.CategoryID, tx.Amount*sign, int64(sign), now)
	}

	if accountErr != nil {
		return fmt.Errorf("adjust account balances: %w", accountErr)
	}
	if categoryErr != nil {
		return fmt.Errorf("adjust category counters: %w", categoryErr)
	}
	return nil
}

// applyCategoryEffect adjusts the direct and total counters on the target
// category, then propagates the total-only delta up the ancestor chain.
func (m *BalanceMaintainer) applyCategoryEffect(ctx context.Context, categoryID uuid.UUID, balanceDelta float64, countDelta int64, now int64) error {
	if err := m.categories.AdjustCounters(ctx, categoryID, balanceDelta, balanceDelta, countDelta, countDelta, now); err != nil {
		return err
	}

	ancestors, err := m.ancestorChain(ctx, categoryID)
	if err != nil {
		return err
	}
	for _, ancestorID := range ancestors {
		if err := m.categories.AdjustCounters(ctx, ancestorID, 0, balanceDelta, 0, countDelta, now); err != nil {
			return err
		}
	}
	return nil
}

// ancestorChain walks parent links from the category upward, excluding the
// category itself. A visited set stops the walk if corrupt data ever forms a
// cycle; parent assignment rejects cycles so this is a backstop, not a path.
func (m *BalanceMaintainer) ancestorChain(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	category, err := m.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{categoryID: true}
	var chain []uuid.UUID
	for category.ParentID != nil {
		parentID := *category.ParentID
		if visited[parentID] {
			m.logger.Warn("Cycle detected in category parent chain, stopping propagation",
				zap.String("category_id", categoryID.String()),
				zap.String("repeated_id", parentID.String()),
			)
			break
		}
		visited[parentID] = true
		chain = append(chain, parentID)

		category, err = m.categories.GetByID(ctx, parentID)
		if err != nil {
			return chain, err
		}
	}
	return chain, nil
}

// OnCategoryReparented moves the category's subtree totals from the old
// ancestor chain to the new one. category already carries the new parent;
// oldParentID is the chain it left.
func (m *BalanceMaintainer) OnCategoryReparented(ctx context.Context, category *models.Category, oldParentID *uuid.UUID) {
	now := nowMillis()
	if err := m.adjustAncestorTotals(ctx, oldParentID, -category.Balance, -category.TransactionCount, now); err != nil {
		m.recoverCategoryChains(ctx, err, reparentChainIDs(category, oldParentID)...)
		return
	}
	if err := m.adjustAncestorTotals(ctx, category.ParentID, category.Balance, category.TransactionCount, now); err != nil {
		m.recoverCategoryChains(ctx, err, reparentChainIDs(category, oldParentID)...)
	}
}

// OnCategorySoftDeleted removes the deleted subtree's totals from its ancestor
// chain. Descendant queries exclude deleted rows, so the maintained ancestor
// totals must drop the subtree too or recompute would disagree with them.
func (m *BalanceMaintainer) OnCategorySoftDeleted(ctx context.Context, category *models.Category) {
	if category.ParentID == nil {
		return
	}
	if err := m.adjustAncestorTotals(ctx, category.ParentID, -category.Balance, -category.TransactionCount, nowMillis()); err != nil {
		m.recoverCategoryChains(ctx, err, *category.ParentID)
	}
}

// OnCategoryRestored re-adds the subtree's totals after a deletion is undone.
func (m *BalanceMaintainer) OnCategoryRestored(ctx context.Context, category *models.Category) {
	if category.ParentID == nil {
		return
	}
	if err := m.adjustAncestorTotals(ctx, category.ParentID, category.Balance, category.TransactionCount, nowMillis()); err != nil {
		m.recoverCategoryChains(ctx, err, *category.ParentID)
	}
}

// adjustAncestorTotals applies a tree-total delta to startID and every
// ancestor above it. A nil start means the chain ends at the root.
func (m *BalanceMaintainer) adjustAncestorTotals(ctx context.Context, startID *uuid.UUID, balanceDelta float64, countDelta int64, now int64) error {
	if startID == nil {
		return nil
	}
	if err := m.categories.AdjustCounters(ctx, *startID, 0, balanceDelta, 0, countDelta, now); err != nil {
		return err
	}
	ancestors, err := m.ancestorChain(ctx, *startID)
	if err != nil {
		return err
	}
	for _, ancestorID := range ancestors {
		if err := m.categories.AdjustCounters(ctx, ancestorID, 0, balanceDelta, 0, countDelta, now); err != nil {
			return err
		}
	}
	return nil
}

func (m *BalanceMaintainer) recoverCategoryChains(ctx context.Context, cause error, ids ...uuid.UUID) {
	m.logger.Warn("Incremental category maintenance failed, falling back to full recompute",
		zap.Error(cause),
	)
	for _, id := range ids {
		if err := m.RecomputeCategoryChain(ctx, id); err != nil {
			m.logger.Error("Category recompute failed, queueing repair",
				zap.String("category_id", id.String()),
				zap.Error(err),
			)
			m.enqueueRepair(ctx, models.RepairEntityCategory, id, err)
		}
	}
}

func reparentChainIDs(category *models.Category, oldParentID *uuid.UUID) []uuid.UUID {
	ids := []uuid.UUID{category.ID}
	if oldParentID != nil {
		ids = append(ids, *oldParentID)
	}
	return ids
}

// recover is the fallback full-recompute path: every account and category the
// failed operation touched is re-derived from the transaction table. Errors
// here are logged and queued for the repair worker, never surfaced.
func (m *BalanceMaintainer) recover(ctx context.Context, cause error, txs ...*models.Transaction) {
	m.logger.Warn("Incremental balance maintenance failed, falling back to full recompute",
		zap.Error(cause),
	)

	accountIDs := make(map[uuid.UUID]bool)
	categoryIDs := make(map[uuid.UUID]bool)
	for _, tx := range txs {
		for accountID := range tx.AccountDeltas() {
			accountIDs[accountID] = true
		}
		if tx.CategoryID != nil {
			categoryIDs[*tx.CategoryID] = true
		}
	}

	for accountID := range accountIDs {
		if err := m.RecomputeAccount(ctx, accountID); err != nil {
			m.logger.Error("Account recompute failed, queueing repair",
				zap.String("account_id", accountID.String()),
				zap.Error(err),
			)
			m.enqueueRepair(ctx, models.RepairEntityAccount, accountID, err)
		}
	}
	for categoryID := range categoryIDs {
		if err := m.RecomputeCategoryChain(ctx, categoryID); err != nil {
			m.logger.Error("Category recompute failed, queueing repair",
				zap.String("category_id", categoryID.String()),
				zap.Error(err),
			)
			m.enqueueRepair(ctx, models.RepairEntityCategory, categoryID, err)
		}
	}
}

func (m *BalanceMaintainer) enqueueRepair(ctx context.Context, entityType string, entityID uuid.UUID, cause error) {
	if err := m.repairs.Enqueue(ctx, entityType, entityID, cause.Error()); err != nil {
		m.logger.Error("Failed to enqueue repair item",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()),
			zap.Error(err),
		)
	}
}

// RecomputeAccount re-derives the maintained balance from the surviving
// transactions, applying the type-based sign rules.
func (m *BalanceMaintainer) RecomputeAccount(ctx context.Context, accountID uuid.UUID) error {
	txs, err := m.transactions.ListByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("list transactions for account: %w", err)
	}

	var balance float64
	for _, tx := range txs {
		balance += tx.AccountDeltas()[accountID]
	}

	if err := m.accounts.SetBalance(ctx, accountID, balance, nowMillis()); err != nil {
		return fmt.Errorf("set recomputed balance: %w", err)
	}
	return nil
}

// RecomputeCategoryChain recomputes the whole subtree below the category
// bottom-up, then fixes totals along the ancestor chain.
func (m *BalanceMaintainer) RecomputeCategoryChain(ctx context.Context, categoryID uuid.UUID) error {
	visited := make(map[uuid.UUID]bool)
	if _, _, err := m.recomputeSubtree(ctx, categoryID, visited); err != nil {
		return err
	}

	ancestors, err := m.ancestorChain(ctx, categoryID)
	if err != nil {
		return err
	}
	for _, ancestorID := range ancestors {
		if err := m.recomputeFromChildren(ctx, ancestorID); err != nil {
			return err
		}
	}
	return nil
}

func (m *BalanceMaintainer) recomputeSubtree(ctx context.Context, categoryID uuid.UUID, visited map[uuid.UUID]bool) (float64, int64, error) {
	if visited[categoryID] {
		return 0, 0, fmt.Errorf("cycle at category %s", categoryID)
	}
	visited[categoryID] = true

	direct, err := m.transactions.SumByCategories(ctx, []uuid.UUID{categoryID}, nil, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("sum direct transactions: %w", err)
	}

	total, count := direct.Total, direct.Count
	children, err := m.categories.Children(ctx, categoryID)
	if err != nil {
		return 0, 0, fmt.Errorf("list children: %w", err)
	}
	for _, child := range children {
		childTotal, childCount, err := m.recomputeSubtree(ctx, child.ID, visited)
		if err != nil {
			return 0, 0, err
		}
		total += childTotal
		count += childCount
	}

	if err := m.categories.SetCounters(ctx, categoryID, direct.Total, total, direct.Count, count, nowMillis()); err != nil {
		return 0, 0, fmt.Errorf("set recomputed counters: %w", err)
	}
	return total, count, nil
}

// recomputeFromChildren rebuilds one node's counters trusting the already
// corrected stored totals of its children.
func (m *BalanceMaintainer) recomputeFromChildren(ctx context.Context, categoryID uuid.UUID) error {
	direct, err := m.transactions.SumByCategories(ctx, []uuid.UUID{categoryID}, nil, nil)
	if err != nil {
		return fmt.Errorf("sum direct transactions: %w", err)
	}

	total, count := direct.Total, direct.Count
	children, err := m.categories.Children(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("list children: %w", err)
	}
	for _, child := range children {
		total += child.Balance
		count += child.TransactionCount
	}

	if err := m.categories.SetCounters(ctx, categoryID, direct.Total, total, direct.Count, count, nowMillis()); err != nil {
		return fmt.Errorf("set recomputed counters: %w", err)
	}
	return nil
}
