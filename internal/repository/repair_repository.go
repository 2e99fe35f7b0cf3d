package repository

import (
	"context"

	"fintrack/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type repairRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRepairRepository(db *pgxpool.Pool, logger *zap.Logger) RepairRepository {
	return &repairRepository{
		db:     db,
		logger: logger,
	}
}

func (r *repairRepository) Enqueue(ctx context.Context, entityType string, entityID uuid.UUID, lastError string) error {
	// One queue row per entity; re-enqueueing refreshes the error message.
	sql := `
		INSERT INTO repair_queue (entity_type, entity_id, last_error)
		VALUES ($1, $2, $3)
		ON CONFLICT (entity_type, entity_id)
		DO UPDATE SET last_error = EXCLUDED.last_error
	`
	_, err := r.db.Exec(ctx, sql, entityType, entityID, lastError)
	return err
}

func (r *repairRepository) DequeueBatch(ctx context.Context, limit int) ([]*models.RepairItem, error) {
	query := squirrel.Select("id", "entity_type", "entity_id", "attempts", "last_error", "enqueued_at").
		From("repair_queue").
		OrderBy("enqueued_at").
		Limit(uint64(limit)).
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

	var items []*models.RepairItem
	for rows.Next() {
		var item models.RepairItem
		if err := rows.Scan(&item.ID, &item.EntityType, &item.EntityID, &item.Attempts, &item.LastError, &item.EnqueuedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *repairRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := squirrel.Delete("repair_queue").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *repairRepository) MarkAttempt(ctx context.Context, id int64, lastError string) error {
	query := squirrel.Update("repair_queue").
		Set("attempts", squirrel.Expr("attempts + 1")).
		Set("last_error", lastError).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
