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

var accountColumns = []string{
	"id", "name", "description", "balance", "type", "icon", "color",
	"include_in_total", "credit_limit", "is_deleted", "updated_at",
	"sync_version", "last_modified_by", "created_at",
}

type accountRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAccountRepository(db *pgxpool.Pool, logger *zap.Logger) AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	query := squirrel.Insert("accounts").
		Columns(accountColumns[:len(accountColumns)-1]...).
		Values(account.ID, account.Name, account.Description, account.Balance, account.Type,
			account.Icon, account.Color, account.IncludeInTotal, account.CreditLimit,
			account.IsDeleted, account.UpdatedAt, account.SyncVersion, account.LastModifiedBy).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := squirrel.Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	account, err := scanAccount(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return account, nil
}

func (r *accountRepository) List(ctx context.Context, includeDeleted bool) ([]*models.Account, error) {
	query := squirrel.Select(accountColumns...).
		From("accounts").
		OrderBy("created_at").
		PlaceholderFormat(squirrel.Dollar)
	if !includeDeleted {
		query = query.Where(squirrel.Eq{"is_deleted": false})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	query := squirrel.Update("accounts").
		Set("name", account.Name).
		Set("description", account.Description).
		Set("balance", account.Balance).
		Set("type", account.Type).
		Set("icon", account.Icon).
		Set("color", account.Color).
		Set("include_in_total", account.IncludeInTotal).
		Set("credit_limit", account.CreditLimit).
		Set("is_deleted", account.IsDeleted).
		Set("updated_at", account.UpdatedAt).
		Set("sync_version", account.SyncVersion).
		Set("last_modified_by", account.LastModifiedBy).
		Where(squirrel.Eq{"id": account.ID}).
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

func (r *accountRepository) AdjustBalance(ctx context.Context, id uuid.UUID, delta float64, updatedAt int64) error {
	query := squirrel.Update("accounts").
		Set("balance", squirrel.Expr("balance + ?", delta)).
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

func (r *accountRepository) SetBalance(ctx context.Context, id uuid.UUID, balance float64, updatedAt int64) error {
	query := squirrel.Update("accounts").
		Set("balance", balance).
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

func (r *accountRepository) SoftDelete(ctx context.Context, id uuid.UUID, updatedAt int64) error {
	query := squirrel.Update("accounts").
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

func (r *accountRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := squirrel.Delete("accounts").
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

func (r *accountRepository) CountActive(ctx context.Context) (int64, error) {
	sql, args, err := squirrel.Select("COUNT(*)").
		From("accounts").
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

func (r *accountRepository) ChangedSince(ctx context.Context, since int64) ([]*models.Account, error) {
	query := squirrel.Select(accountColumns...).
		From("accounts").
		Where(squirrel.Gt{"updated_at": since}).
		OrderBy("updated_at").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID, &account.Name, &account.Description, &account.Balance, &account.Type,
		&account.Icon, &account.Color, &account.IncludeInTotal, &account.CreditLimit,
		&account.IsDeleted, &account.UpdatedAt, &account.SyncVersion,
		&account.LastModifiedBy, &account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
