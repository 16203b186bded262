// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"autoapprove/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SnapshotRepository реализует интерфейс архива снимков
type SnapshotRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSnapshotRepository создает новый репозиторий снимков
func NewSnapshotRepository(db *bun.DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Save сохраняет снимок
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *model.Snapshot) error {
	_, err := r.db.NewInsert().
		Model(snapshot).
		Returning("id, created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	r.logger.Debug("Snapshot archived",
		zap.Int64("id", snapshot.ID),
		zap.String("reason", snapshot.Reason),
		zap.Int("size_bytes", snapshot.SizeBytes))
	return nil
}

// Latest возвращает последний снимок или NotFoundError
func (r *SnapshotRepository) Latest(ctx context.Context) (*model.Snapshot, error) {
	snapshot := new(model.Snapshot)
	err := r.db.NewSelect().
		Model(snapshot).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{What: "archived snapshot"}
		}
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	return snapshot, nil
}

// Count возвращает количество снимков
func (r *SnapshotRepository) Count(ctx context.Context) (int, error) {
	count, err := r.db.NewSelect().
		Model((*model.Snapshot)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// Prune удаляет все снимки, кроме keep последних
func (r *SnapshotRepository) Prune(ctx context.Context, keep int) (int, error) {
	// Limit(0) в bun снимает ограничение, поэтому хотя бы один снимок остается
	if keep < 1 {
		keep = 1
	}

	recent := r.db.NewSelect().
		Model((*model.Snapshot)(nil)).
		Column("id").
		Order("id DESC").
		Limit(keep)

	res, err := r.db.NewDelete().
		Model((*model.Snapshot)(nil)).
		Where("id NOT IN (?)", recent).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned rows: %w", err)
	}
	if removed > 0 {
		r.logger.Info("Pruned archived snapshots", zap.Int64("removed", removed), zap.Int("kept", keep))
	}
	return int(removed), nil
}
