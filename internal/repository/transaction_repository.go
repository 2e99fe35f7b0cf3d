package repository

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var transactionColumns = []string{
	"id", "transaction_date", "from_account_id", "to_account_id", "category_id",
	"amount", "description", "notes", "type", "is_deleted", "deleted_at",
	"updated_at", "sync_version", "last_modified_by", "created_at",
}

type transactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Insert("transactions").
		Columns(transactionColumns[:len(transactionColumns)-1]...).
		Values(tx.ID, tx.TransactionDate, tx.FromAccountID, tx.ToAccountID, tx.CategoryID,
			tx.Amount, tx.Description, tx.Notes, tx.Type, tx.IsDeleted, tx.DeletedAt,
			tx.UpdatedAt, tx.SyncVersion, tx.LastModifiedBy).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	tx, err := scanTransaction(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return tx, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		OrderBy("transaction_date DESC").
		PlaceholderFormat(squirrel.Dollar)

	if !filter.IncludeDeleted {
		query = query.Where(squirrel.Eq{"is_deleted": false})
	}
	if filter.FromAccountID != nil {
		query = query.Where(squirrel.Eq{"from_account_id": *filter.FromAccountID})
	}
	if filter.ToAccountID != nil {
		query = query.Where(squirrel.Eq{"to_account_id": *filter.ToAccountID})
	}
	if filter.CategoryID != nil {
		query = query.Where(squirrel.Eq{"category_id": *filter.CategoryID})
	}
	if filter.FromDate != nil {
		query = query.Where(squirrel.GtOrEq{"transaction_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		query = query.Where(squirrel.LtOrEq{"transaction_date": *filter.ToDate})
	}

	return r.queryTransactions(ctx, query)
}

func (r *transactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Update("transactions").
		Set("transaction_date", tx.TransactionDate).
		Set("from_account_id", tx.FromAccountID).
		Set("to_account_id", tx.ToAccountID).
		Set("category_id", tx.CategoryID).
		Set("amount", tx.Amount).
		Set("description", tx.Description).
		Set("notes", tx.Notes).
		Set("type", tx.Type).
		Set("is_deleted", tx.IsDeleted).
		Set("deleted_at", tx.DeletedAt).
		Set("updated_at", tx.UpdatedAt).
		Set("sync_version", tx.SyncVersion).
		Set("last_modified_by", tx.LastModifiedBy).
		Where(squirrel.Eq{"id": tx.ID}).
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

func (r *transactionRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time, updatedAt int64) error {
	query := squirrel.Update("transactions").
		Set("is_deleted", true).
		Set("deleted_at", deletedAt).
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

func (r *transactionRepository) Restore(ctx context.Context, id uuid.UUID, updatedAt int64) error {
	query := squirrel.Update("transactions").
		Set("is_deleted", false).
		Set("deleted_at", nil).
		Set("updated_at", updatedAt).
		Set("sync_version", squirrel.Expr("sync_version + 1")).
		Where(squirrel.Eq{"id": id, "is_deleted": true}).
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

func (r *transactionRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := squirrel.Delete("transactions").
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

func (r *transactionRepository) SumIncoming(ctx context.Context, accountID uuid.UUID, from, to *time.Time) (float64, error) {
	return r.sumAmount(ctx, "to_account_id", accountID, from, to)
}

func (r *transactionRepository) SumOutgoing(ctx context.Context, accountID uuid.UUID, from, to *time.Time) (float64, error) {
	return r.sumAmount(ctx, "from_account_id", accountID, from, to)
}

func (r *transactionRepository) sumAmount(ctx context.Context, column string, accountID uuid.UUID, from, to *time.Time) (float64, error) {
	query := squirrel.Select("COALESCE(SUM(amount), 0)").
		From("transactions").
		Where(squirrel.Eq{column: accountID, "is_deleted": false}).
		PlaceholderFormat(squirrel.Dollar)
	if from != nil {
		query = query.Where(squirrel.GtOrEq{"transaction_date": *from})
	}
	if to != nil {
		query = query.Where(squirrel.LtOrEq{"transaction_date": *to})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var total float64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *transactionRepository) SumByCategories(ctx context.Context, categoryIDs []uuid.UUID, from, to *time.Time) (CategoryTotals, error) {
	if len(categoryIDs) == 0 {
		return CategoryTotals{}, nil
	}

	query := squirrel.Select("COALESCE(SUM(amount), 0)", "COUNT(*)").
		From("transactions").
		Where(squirrel.Eq{"category_id": categoryIDs, "is_deleted": false}).
		PlaceholderFormat(squirrel.Dollar)
	if from != nil {
		query = query.Where(squirrel.GtOrEq{"transaction_date": *from})
	}
	if to != nil {
		query = query.Where(squirrel.LtOrEq{"transaction_date": *to})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return CategoryTotals{}, err
	}

	var totals CategoryTotals
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&totals.Total, &totals.Count); err != nil {
		return CategoryTotals{}, err
	}
	return totals, nil
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"is_deleted": false}).
		Where(squirrel.Or{
			squirrel.Eq{"from_account_id": accountID},
			squirrel.Eq{"to_account_id": accountID},
		}).
		PlaceholderFormat(squirrel.Dollar)

	return r.queryTransactions(ctx, query)
}

func (r *transactionRepository) CountActive(ctx context.Context) (int64, error) {
	sql, args, err := squirrel.Select("COUNT(*)").
		From("transactions").
		Where(squirrel.Eq{"is_deleted": false}).
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

func (r *transactionRepository) ChangedSince(ctx context.Context, since int64) ([]*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Gt{"updated_at": since}).
		OrderBy("updated_at").
		PlaceholderFormat(squirrel.Dollar)

	return r.queryTransactions(ctx, query)
}

func (r *transactionRepository) queryTransactions(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Transaction, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID, &tx.TransactionDate, &tx.FromAccountID, &tx.ToAccountID, &tx.CategoryID,
		&tx.Amount, &tx.Description, &tx.Notes, &tx.Type, &tx.IsDeleted, &tx.DeletedAt,
		&tx.UpdatedAt, &tx.SyncVersion, &tx.LastModifiedBy, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
