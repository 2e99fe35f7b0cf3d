package repository

import (
	"context"
	"errors"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var categoryColumns = []string{
	"id", "name", "description", "icon", "color", "type", "parent_id",
	"sort_order", "balance", "direct_balance", "transaction_count",
	"direct_transaction_count", "is_deleted", "updated_at", "sync_version",
	"last_modified_by", "created_at",
}

type categoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCategoryRepository(db *pgxpool.Pool, logger *zap.Logger) CategoryRepository {
	return &categoryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := squirrel.Insert("categories").
		Columns(categoryColumns[:len(categoryColumns)-1]...).
		Values(category.ID, category.Name, category.Description, category.Icon, category.Color,
			category.Type, category.ParentID, category.SortOrder, category.Balance,
			category.DirectBalance, category.TransactionCount, category.DirectTransactionCount,
			category.IsDeleted, category.UpdatedAt, category.SyncVersion, category.LastModifiedBy).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	query := squirrel.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	category, err := scanCategory(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	query := squirrel.Select(categoryColumns...).
		From("categories").
		OrderBy("sort_order", "created_at").
		PlaceholderFormat(squirrel.Dollar)

	return r.queryCategories(ctx, query)
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	query := squirrel.Update("categories").
		Set("name", category.Name).
		Set("description", category.Description).
		Set("icon", category.Icon).
		Set("color", category.Color).
		Set("type", category.Type).
		Set("parent_id", category.ParentID).
		Set("sort_order", category.SortOrder).
		Set("balance", category.Balance).
		Set("direct_balance", category.DirectBalance).
		Set("transaction_count", category.TransactionCount).
		Set("direct_transaction_count", category.DirectTransactionCount).
		Set("is_deleted", category.IsDeleted).
		Set("updated_at", category.UpdatedAt).
		Set("sync_version", category.SyncVersion).
		Set("last_modified_by", category.LastModifiedBy).
		Where(squirrel.Eq{"id": category.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) Children(ctx context.Context, parentID uuid.UUID) ([]*models.Category, error) {
	query := squirrel.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Eq{"parent_id": parentID, "is_deleted": false}).
		OrderBy("sort_order").
		PlaceholderFormat(squirrel.Dollar)

	return r.queryCategories(ctx, query)
}

func (r *categoryRepository) DescendantIDs(ctx context.Context, rootID uuid.UUID) ([]uuid.UUID, error) {
	// Recursive walk of the tree below root; root itself is excluded. Parent
	// assignment rejects cycles, so the depth cap is a backstop that keeps the
	// recursion bounded if corrupt data ever closes one.
	sql := `
		WITH RECURSIVE descendants AS (
			SELECT id, 1 AS depth FROM categories WHERE parent_id = $1 AND is_deleted = FALSE
			UNION ALL
			SELECT c.id, d.depth + 1 FROM categories c
			JOIN descendants d ON c.parent_id = d.id
			WHERE c.is_deleted = FALSE AND d.depth < 64
		)
		SELECT id FROM descendants
	`

	rows, err := r.db.Query(ctx, sql, rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *categoryRepository) AdjustCounters(ctx context.Context, id uuid.UUID, directBalanceDelta, balanceDelta float64, directCountDelta, countDelta int64, updatedAt int64) error {
	query := squirrel.Update("categories").
		Set("direct_balance", squirrel.Expr("direct_balance + ?", directBalanceDelta)).
		Set("balance", squirrel.Expr("balance + ?", balanceDelta)).
		Set("direct_transaction_count", squirrel.Expr("direct_transaction_count + ?", directCountDelta)).
		Set("transaction_count", squirrel.Expr("transaction_count + ?", countDelta)).
		Set("updated_at", updatedAt).
		Set("sync_version", squirrel.Expr("sync_version + 1")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) SetCounters(ctx context.Context, id uuid.UUID, directBalance, balance float64, directCount, count int64, updatedAt int64) error {
	query := squirrel.Update("categories").
		Set("direct_balance", directBalance).
		Set("balance", balance).
		Set("direct_transaction_count", directCount).
		Set("transaction_count", count).
		Set("updated_at", updatedAt).
		Set("sync_version", squirrel.Expr("sync_version + 1")).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) SoftDelete(ctx context.Context, id uuid.UUID, updatedAt int64) error {
	query := squirrel.Update("categories").
		Set("is_deleted", true).
		Set("updated_at", updatedAt).
		Set("sync_version", squirrel.Expr("sync_version + 1")).
		Where(squirrel.Eq{"id": id, "is_deleted": false}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := squirrel.Delete("categories").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) CountAll(ctx context.Context) (int64, error) {
	sql, args, err := squirrel.Select("COUNT(*)").
		From("categories").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *categoryRepository) ChangedSince(ctx context.Context, since int64) ([]*models.Category, error) {
	query := squirrel.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Gt{"updated_at": since}).
		OrderBy("updated_at").
		PlaceholderFormat(squirrel.Dollar)

	return r.queryCategories(ctx, query)
}

func (r *categoryRepository) queryCategories(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Category, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

func scanCategory(row pgx.Row) (*models.Category, error) {
	var category models.Category
	err := row.Scan(
		&category.ID, &category.Name, &category.Description, &category.Icon, &category.Color,
		&category.Type, &category.ParentID, &category.SortOrder, &category.Balance,
		&category.DirectBalance, &category.TransactionCount, &category.DirectTransactionCount,
		&category.IsDeleted, &category.UpdatedAt, &category.SyncVersion,
		&category.LastModifiedBy, &category.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &category, nil
}
